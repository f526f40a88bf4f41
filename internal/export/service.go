package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/plannerdash/go-planner-backend/internal/mirror/domain"
)

// ErrUnsupportedFormat is returned for formats other than xlsx and csv.
var ErrUnsupportedFormat = errors.New("unsupported export format")

const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

var header = []string{
	"Task ID", "Title", "Planner", "Bucket", "Status", "Priority",
	"Percent Complete", "Assignees", "Start Date", "Due Date",
	"Completed Date", "Overdue",
}

// Lister is the slice of the mirror store exports read from.
type Lister interface {
	TasksForExport(ctx context.Context, f domain.TaskFilter) ([]domain.Task, error)
}

// Service renders filtered task reports. An empty filter exports every task
// in the mirror.
type Service struct {
	tasks Lister
	now   func() time.Time
}

func NewService(tasks Lister) *Service {
	return &Service{tasks: tasks, now: time.Now}
}

// ContentType returns the MIME type for a supported format.
func ContentType(format string) string {
	if format == FormatCSV {
		return "text/csv"
	}
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Filename returns the date-stamped attachment name for a report.
func (s *Service) Filename(format string) string {
	return fmt.Sprintf("tasks_%s.%s", s.now().Format("2006-01-02"), format)
}

// Write renders the report for the filter into w in the requested format.
func (s *Service) Write(ctx context.Context, w io.Writer, format string, f domain.TaskFilter) error {
	tasks, err := s.tasks.TasksForExport(ctx, f)
	if err != nil {
		return fmt.Errorf("load tasks for export: %w", err)
	}

	switch format {
	case FormatCSV:
		return writeCSV(w, tasks)
	case FormatXLSX:
		return writeXLSX(w, tasks)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func taskRow(t *domain.Task) []string {
	names := make([]string, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		names = append(names, a.DisplayName)
	}

	return []string{
		t.ID,
		t.Title,
		t.PlannerTitle,
		t.BucketName,
		string(t.Status),
		string(t.Priority),
		strconv.Itoa(t.PercentComplete),
		strings.Join(names, "; "),
		formatDate(t.StartDate),
		formatDate(t.DueDate),
		formatDate(t.CompletedDate),
		strconv.FormatBool(t.IsOverdue),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func writeCSV(w io.Writer, tasks []domain.Task) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range tasks {
		if err := cw.Write(taskRow(&tasks[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, tasks []domain.Task) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Tasks"
	f.SetSheetName("Sheet1", sheet)

	for col, title := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, title); err != nil {
			return err
		}
	}

	for i := range tasks {
		for col, val := range taskRow(&tasks[i]) {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}
