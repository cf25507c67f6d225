package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
)

func TestAlreadyExists(t *testing.T) {
	exists := &azcore.ResponseError{ErrorCode: string(aztables.TableAlreadyExists)}
	tests := []struct {
		name string
		err  error
		code string
		want bool
	}{
		{name: "table exists", err: exists, code: string(aztables.TableAlreadyExists), want: true},
		{name: "wrapped", err: fmt.Errorf("create: %w", exists), code: string(aztables.TableAlreadyExists), want: true},
		{name: "other code", err: &azcore.ResponseError{ErrorCode: "AuthorizationFailure"}, code: "QueueAlreadyExists", want: false},
		{name: "plain error", err: errors.New("boom"), code: "QueueAlreadyExists", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := alreadyExists(tt.err, tt.code); got != tt.want {
				t.Fatalf("alreadyExists = %v, want %v", got, tt.want)
			}
		})
	}
}
