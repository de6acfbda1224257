package Controllers

import (
	"bytes"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"

	"Onboarding/Models"
	"Onboarding/Progress"
)

const (
	progressSheet = "Progress"
	tasksSheet    = "Tasks"
	xlsxMIME      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var progressHeaders = []string{
	"Employee", "Email", "Department", "Position", "Start Date", "Current Day",
	"Completed Tasks", "Total Tasks", "Progress %", "Overdue Tasks", "Onboarding Completed",
}

var taskHeaders = []string{
	"Employee", "Day", "Task", "Completed", "Completed At", "Notes",
}

// ExportProgress downloads every employee's progress as an xlsx workbook
func (c *AdminController) ExportProgress(ctx *fiber.Ctx) error {
	employees, err := Models.GetEmployeesWithProgress(c.DB)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to fetch employees")
	}

	today := c.Now()
	buf, err := progressWorkbook(employees, today)
	if err != nil {
		return serverError(ctx, c.Logger, err, "Failed to build export")
	}

	filename := fmt.Sprintf("onboarding_progress_%s.xlsx", today.Format("20060102"))
	ctx.Set("Content-Type", xlsxMIME)
	ctx.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	return ctx.Send(buf.Bytes())
}

func progressWorkbook(employees []Models.Employee, today time.Time) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(progressSheet)
	if err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if _, err := f.NewSheet(tasksSheet); err != nil {
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	if err := writeRow(f, progressSheet, 1, toCells(progressHeaders)); err != nil {
		return nil, err
	}
	if err := writeRow(f, tasksSheet, 1, toCells(taskHeaders)); err != nil {
		return nil, err
	}
	for _, sheet := range []string{progressSheet, tasksSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			return nil, err
		}
	}

	taskRow := 2
	for i, employee := range employees {
		tasks := employee.EmployeeTasks
		completed, _ := Progress.CountCompleted(tasks)
		err := writeRow(f, progressSheet, i+2, []interface{}{
			employee.FullName,
			employee.Email,
			employee.Department,
			employee.Position,
			Progress.FormatDate(employee.StartDate),
			Progress.CurrentOnboardingDay(employee.StartDate, today),
			completed,
			len(tasks),
			Progress.CompletionPercentage(tasks),
			len(Progress.OverdueTasks(tasks, employee.StartDate, today)),
			yesNo(employee.OnboardingCompleted),
		})
		if err != nil {
			return nil, err
		}

		for _, task := range tasks {
			if err := writeRow(f, tasksSheet, taskRow, taskCells(employee, task)); err != nil {
				return nil, err
			}
			taskRow++
		}
	}

	if err := f.SetColWidth(progressSheet, "A", columnName(len(progressHeaders)), 18); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(tasksSheet, "A", "B", 18); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(tasksSheet, "C", "C", 40); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("error writing Excel file to buffer: %w", err)
	}
	return &buf, nil
}

func taskCells(employee Models.Employee, task Models.EmployeeTask) []interface{} {
	var day interface{} = "Ad-hoc"
	if n, ok := task.DayNumber(); ok {
		day = n
	}
	title := ""
	if task.Task != nil {
		title = task.Task.Title
	}
	completedAt := ""
	if task.CompletedAt != nil {
		completedAt = Progress.FormatDateTime(*task.CompletedAt)
	}
	return []interface{}{employee.FullName, day, title, yesNo(task.Completed), completedAt, task.Notes}
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func toCells(headers []string) []interface{} {
	cells := make([]interface{}, len(headers))
	for i, header := range headers {
		cells[i] = header
	}
	return cells
}

func columnName(n int) string {
	name, _ := excelize.ColumnNumberToName(n)
	return name
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
