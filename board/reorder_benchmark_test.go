package board

import (
	"fmt"
	"testing"

	"github.com/Sheulydsp/kanban-dashboard/domain"
)

func BenchmarkReorderColumn(b *testing.B) {
	for _, size := range []int{16, 1024} {
		b.Run(fmt.Sprintf("Tasks%d", size), func(b *testing.B) {
			tasks := make([]domain.Task, size)
			for i := range tasks {
				tasks[i] = domain.Task{ID: fmt.Sprintf("t%d", i), Status: domain.Statuses[i%2]}
			}
			src, tgt := tasks[size-2].ID, tasks[0].ID

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, ok := reorderColumn(tasks, domain.StatusBacklog, src, tgt); !ok {
					b.Fatal("reorder failed")
				}
			}
		})
	}
}
