package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

// tableClient is the subset of *aztables.Client used by Tables.
type tableClient interface {
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey string, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

// TablesClientOptions are the retry settings used for every table client.
func TablesClientOptions() *aztables.ClientOptions {
	return &aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
}

// NewTableClient opens the named table from a storage connection string.
func NewTableClient(connStr, table string) (*aztables.Client, error) {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, TablesClientOptions())
	if err != nil {
		return nil, err
	}
	return svc.NewClient(table), nil
}

// Tables stores one entity per task in a single partition. The board order
// is kept in the Order column. Saves only touch rows that changed since the
// last load or save.
type Tables struct {
	client    tableClient
	partition string

	mu    sync.Mutex
	known map[string]taskEntity
}

func NewTables(client tableClient, partition string) *Tables {
	if client == nil {
		panic("storage.NewTables: client is nil")
	}
	if partition == "" {
		partition = "board"
	}
	return &Tables{client: client, partition: partition}
}

type taskEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Title        string `json:"Title"`
	Status       string `json:"Status"`
	Description  string `json:"Description"`
	DueDate      string `json:"DueDate"`
	// Tables has no array type, so tags are kept as a JSON array string.
	Tags     string `json:"Tags"`
	Priority string `json:"Priority"`
	Order    int    `json:"Order"`
}

func (t *Tables) Load(ctx context.Context) ([]domain.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entities, err := t.list(ctx)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(entities, func(i, j int) bool {
		if entities[i].Order != entities[j].Order {
			return entities[i].Order < entities[j].Order
		}
		return entities[i].RowKey < entities[j].RowKey
	})

	tasks := make([]domain.Task, 0, len(entities))
	known := make(map[string]taskEntity, len(entities))
	for _, ent := range entities {
		task, err := ent.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
		known[ent.RowKey] = ent
	}
	t.known = known
	return tasks, nil
}

func (t *Tables) Save(ctx context.Context, tasks []domain.Task) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.known == nil {
		existing, err := t.list(ctx)
		if err != nil {
			return err
		}
		t.known = make(map[string]taskEntity, len(existing))
		for _, ent := range existing {
			t.known[ent.RowKey] = ent
		}
	}

	desired := make([]taskEntity, 0, len(tasks))
	for i, task := range tasks {
		ent, err := newTaskEntity(t.partition, i, task)
		if err != nil {
			return err
		}
		desired = append(desired, ent)
	}
	upserts, deletes := planTableWrites(t.known, desired)

	for _, ent := range upserts {
		data, err := sonic.Marshal(ent)
		if err != nil {
			return err
		}
		_, err = t.client.UpsertEntity(ctx, data, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
		if err != nil {
			// The table may now be partially written; relist on the next save.
			t.known = nil
			return fmt.Errorf("upsert task %s: %w", ent.RowKey, err)
		}
	}
	for _, rowKey := range deletes {
		if _, err := t.client.DeleteEntity(ctx, t.partition, rowKey, nil); err != nil {
			t.known = nil
			return fmt.Errorf("delete task %s: %w", rowKey, err)
		}
	}

	known := make(map[string]taskEntity, len(desired))
	for _, ent := range desired {
		known[ent.RowKey] = ent
	}
	t.known = known
	return nil
}

func (t *Tables) list(ctx context.Context) ([]taskEntity, error) {
	filter := "PartitionKey eq '" + strings.ReplaceAll(t.partition, "'", "''") + "'"
	pager := t.client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var entities []taskEntity
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent taskEntity
			if err := sonic.Unmarshal(e, &ent); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrCorruptSnapshot, err)
			}
			entities = append(entities, ent)
		}
	}
	return entities, nil
}

func newTaskEntity(partition string, order int, task domain.Task) (taskEntity, error) {
	ent := taskEntity{
		PartitionKey: partition,
		RowKey:       task.ID,
		Title:        task.Title,
		Status:       string(task.Status),
		Description:  task.Description,
		DueDate:      task.DueDate,
		Priority:     string(task.Priority),
		Order:        order,
	}
	if len(task.Tags) > 0 {
		data, err := sonic.Marshal(task.Tags)
		if err != nil {
			return taskEntity{}, err
		}
		ent.Tags = string(data)
	}
	return ent, nil
}

func (e taskEntity) toTask() (domain.Task, error) {
	task := domain.Task{
		ID:          e.RowKey,
		Title:       e.Title,
		Status:      domain.Status(e.Status),
		Description: e.Description,
		DueDate:     e.DueDate,
		Priority:    domain.Priority(e.Priority),
	}
	if e.Tags != "" {
		if err := sonic.UnmarshalString(e.Tags, &task.Tags); err != nil {
			return domain.Task{}, fmt.Errorf("%w: tags of %s: %v", domain.ErrCorruptSnapshot, e.RowKey, err)
		}
		if len(task.Tags) == 0 {
			task.Tags = nil
		}
	}
	return task, nil
}

// planTableWrites returns the entities that differ from what is stored and
// the row keys that are no longer part of the board.
func planTableWrites(known map[string]taskEntity, desired []taskEntity) ([]taskEntity, []string) {
	var upserts []taskEntity
	keep := make(map[string]struct{}, len(desired))
	for _, ent := range desired {
		keep[ent.RowKey] = struct{}{}
		if prev, ok := known[ent.RowKey]; ok && prev == ent {
			continue
		}
		upserts = append(upserts, ent)
	}
	var deletes []string
	for key := range known {
		if _, ok := keep[key]; !ok {
			deletes = append(deletes, key)
		}
	}
	sort.Strings(deletes)
	return upserts, deletes
}
