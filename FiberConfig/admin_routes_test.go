package FiberConfig

import (
	"bytes"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"Onboarding/Models"
	"Onboarding/Progress"
)

type employeeSummary struct {
	ID           uint   `json:"ID"`
	FullName     string `json:"full_name"`
	CurrentDay   int    `json:"current_day"`
	Percentage   int    `json:"percentage"`
	TotalTasks   int    `json:"total_tasks"`
	OverdueTasks int    `json:"overdue_tasks"`
}

// staffed onboards two employees and an admin; ada has finished day 1.
func staffed(t *testing.T) (s *testServer, admin, ada, bob string) {
	s = newTestServer(t)
	admin = s.signUp(adminEmail)
	ada = s.onboard("ada@example.com", "Ada", "2024-01-01")
	bob = s.onboard("bob@example.com", "Bob", "2024-01-05")

	resp, _ := s.do(http.MethodPost, fmt.Sprintf("/api/me/tasks/%d/complete", s.tasks.day1.ID), ada, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return s, admin, ada, bob
}

func employeeID(t *testing.T, s *testServer, token string) uint {
	t.Helper()
	_, body := s.do(http.MethodGet, "/api/me/employee", token, nil)
	var employee Models.Employee
	s.decode(body, &employee)
	require.NotZero(t, employee.ID)
	return employee.ID
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	s := newTestServer(t)
	token := s.signUp("ada@example.com")

	for _, path := range []string{"/api/admin/employees", "/api/admin/tasks", "/api/admin/overview", "/api/admin/logs"} {
		resp, _ := s.do(http.MethodGet, path, token, nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode, path)

		resp, _ = s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestAdminEmployees(t *testing.T) {
	s, admin, _, _ := staffed(t)

	resp, body := s.do(http.MethodGet, "/api/admin/employees", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var employees []employeeSummary
	s.decode(body, &employees)
	require.Len(t, employees, 2)

	assert.Equal(t, "Bob", employees[0].FullName, "newest first")
	assert.Equal(t, 4, employees[0].CurrentDay)
	assert.Equal(t, 0, employees[0].Percentage)
	assert.Equal(t, 2, employees[0].OverdueTasks)

	assert.Equal(t, "Ada", employees[1].FullName)
	assert.Equal(t, 8, employees[1].CurrentDay)
	assert.Equal(t, 33, employees[1].Percentage)
	assert.Equal(t, 3, employees[1].TotalTasks)
	assert.Equal(t, 1, employees[1].OverdueTasks)

	resp, body = s.do(http.MethodGet, fmt.Sprintf("/api/admin/employees/%d/progress", employees[1].ID), admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail struct {
		Tasks    []Models.EmployeeTask `json:"tasks"`
		Progress Progress.Snapshot     `json:"progress"`
	}
	s.decode(body, &detail)
	assert.Len(t, detail.Tasks, 3)
	assert.Equal(t, 33, detail.Progress.Percentage)

	resp, _ = s.do(http.MethodGet, "/api/admin/employees/9999/progress", admin, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminAssignTask(t *testing.T) {
	s, admin, ada, _ := staffed(t)
	path := fmt.Sprintf("/api/admin/employees/%d/tasks", employeeID(t, s, ada))

	resp, body := s.do(http.MethodPost, path, admin, fiber.Map{"task_id": s.tasks.legacy.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var assigned Models.EmployeeTask
	s.decode(body, &assigned)
	require.NotNil(t, assigned.Task)
	assert.Equal(t, "Legacy intranet tour", assigned.Task.Title)

	resp, _ = s.do(http.MethodPost, path, admin, fiber.Map{"task_id": s.tasks.legacy.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, path, admin, fiber.Map{"task_id": 9999})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(http.MethodPost, "/api/admin/employees/9999/tasks", admin, fiber.Map{"task_id": s.tasks.legacy.ID})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Eventually(t, func() bool {
		_, assigned, _ := s.notifier.counts()
		return assigned == 1
	}, time.Second, 10*time.Millisecond)
}

func TestAdminCustomTask(t *testing.T) {
	s, admin, ada, _ := staffed(t)
	path := fmt.Sprintf("/api/admin/employees/%d/custom-tasks", employeeID(t, s, ada))

	resp, _ := s.do(http.MethodPost, path, admin, fiber.Map{"title": "", "links": []fiber.Map{{"name": "Docs", "url": "not a url"}}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body := s.do(http.MethodPost, path, admin, fiber.Map{
		"title":       "Shadow the on-call engineer",
		"description": "Join one incident review",
		"links":       []fiber.Map{{"name": "Runbook", "url": "https://wiki.example.com/runbook"}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var assigned Models.EmployeeTask
	s.decode(body, &assigned)
	require.NotNil(t, assigned.Task)
	assert.False(t, assigned.Task.IsActive)
	assert.Nil(t, assigned.Task.DayNumber)
	assert.Equal(t, []Models.TaskLink{{Name: "Runbook", URL: "https://wiki.example.com/runbook"}}, assigned.Task.LinkList())

	_, body = s.do(http.MethodGet, "/api/me/tasks", ada, nil)
	var tasks []Models.EmployeeTask
	s.decode(body, &tasks)
	assert.Len(t, tasks, 4)

	// a later hire does not receive it
	carl := s.onboard("carl@example.com", "Carl", "2024-01-08")
	_, body = s.do(http.MethodGet, "/api/me/tasks", carl, nil)
	s.decode(body, &tasks)
	assert.Len(t, tasks, 3)
}

func TestAdminTasks(t *testing.T) {
	s := newTestServer(t)
	admin := s.signUp(adminEmail)

	resp, _ := s.do(http.MethodPost, "/api/admin/tasks", admin, fiber.Map{"title": "Too late", "day_number": 31})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, body := s.do(http.MethodPost, "/api/admin/tasks", admin, fiber.Map{"title": "Read the handbook", "day_number": 2})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var created Models.Task
	s.decode(body, &created)
	assert.True(t, created.IsActive)

	_, body = s.do(http.MethodGet, "/api/admin/tasks", admin, nil)
	var tasks []Models.Task
	s.decode(body, &tasks)
	assert.Len(t, tasks, 5, "inactive tasks are listed")

	_, body = s.do(http.MethodGet, "/api/admin/tasks/day/2", admin, nil)
	s.decode(body, &tasks)
	assert.Len(t, tasks, 2)

	resp, _ = s.do(http.MethodGet, "/api/admin/tasks/day/0", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(http.MethodPut, fmt.Sprintf("/api/admin/tasks/%d", created.ID), admin, fiber.Map{"day_number": 4, "is_active": false})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var updated Models.Task
	s.decode(body, &updated)
	require.NotNil(t, updated.DayNumber)
	assert.Equal(t, 4, *updated.DayNumber)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Read the handbook", updated.Title)

	resp, _ = s.do(http.MethodPut, "/api/admin/tasks/9999", admin, fiber.Map{"title": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = s.do(http.MethodPut, fmt.Sprintf("/api/admin/tasks/%d", created.ID), admin, fiber.Map{"day_number": 0})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestAdminReviewsOverviewAtRisk(t *testing.T) {
	s, admin, ada, _ := staffed(t)

	resp, body := s.do(http.MethodGet, "/api/admin/at-risk", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var risk []Progress.AtRiskEmployee
	s.decode(body, &risk)
	require.Len(t, risk, 2)
	assert.Equal(t, "Bob", risk[0].FullName)
	assert.Equal(t, 2, risk[0].OverdueCount)
	assert.Equal(t, "Ada", risk[1].FullName)

	s.setNow(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC))
	resp, _ = s.do(http.MethodPost, "/api/me/review", ada, fiber.Map{"overall_rating": 4})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, body = s.do(http.MethodGet, "/api/admin/reviews", admin, nil)
	var reviews struct {
		Reviews       []Models.OnboardingReview `json:"reviews"`
		Count         int                       `json:"count"`
		AverageRating *float64                  `json:"average_rating"`
		Distribution  []Progress.RatingCount    `json:"distribution"`
	}
	s.decode(body, &reviews)
	assert.Equal(t, 1, reviews.Count)
	require.NotNil(t, reviews.AverageRating)
	assert.Equal(t, 4.0, *reviews.AverageRating)
	require.NotNil(t, reviews.Reviews[0].Employee)
	assert.Equal(t, "Ada", reviews.Reviews[0].Employee.FullName)
	assert.Equal(t, Progress.RatingCount{Rating: 4, Count: 1}, reviews.Distribution[1])

	_, body = s.do(http.MethodGet, "/api/admin/overview", admin, nil)
	var overview Progress.AdminOverview
	s.decode(body, &overview)
	assert.Equal(t, 1, overview.ActiveOnboarding)
	assert.Equal(t, 1, overview.CompletedOnboarding)
	assert.Equal(t, 6, overview.TotalTasks)
	assert.Equal(t, 1, overview.CompletedTasks)
	assert.Equal(t, 17, overview.TaskCompletion)
	assert.Equal(t, 1, overview.ReviewCount)

	// ada closed onboarding and drops off the list
	_, body = s.do(http.MethodGet, "/api/admin/at-risk", admin, nil)
	s.decode(body, &risk)
	require.Len(t, risk, 1)
	assert.Equal(t, "Bob", risk[0].FullName)
}

func TestExportProgress(t *testing.T) {
	s, admin, _, _ := staffed(t)

	resp, body := s.do(http.MethodGet, "/api/admin/export/progress", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "onboarding_progress_20240108.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Progress")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Employee", rows[0][0])
	assert.Equal(t, "Bob", rows[1][0])
	assert.Equal(t, "Ada", rows[2][0])
	assert.Equal(t, "33", rows[2][8])

	rows, err = f.GetRows("Tasks")
	require.NoError(t, err)
	assert.Len(t, rows, 7)
}

func TestAdminLogs(t *testing.T) {
	s, admin, _, _ := staffed(t)

	resp, body := s.do(http.MethodGet, "/api/admin/logs?date_from=2000-01-01&date_to=2100-01-01&method=post", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var logs struct {
		Groups []struct {
			Path   string `json:"path"`
			Method string `json:"method"`
			Count  int    `json:"count"`
		} `json:"groups"`
		TotalLogs int `json:"total_logs"`
	}
	s.decode(body, &logs)
	require.NotEmpty(t, logs.Groups)
	for _, group := range logs.Groups {
		assert.Equal(t, http.MethodPost, group.Method)
	}
	assert.Equal(t, "/api/auth/signup", logs.Groups[0].Path)
	assert.Equal(t, 3, logs.Groups[0].Count)

	resp, _ = s.do(http.MethodGet, "/api/admin/logs?date_from=yesterday", admin, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = s.do(http.MethodGet, "/api/admin/logs/stats?date_from=2000-01-01&date_to=2100-01-01", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats struct {
		TotalRequests int `json:"total_requests"`
	}
	s.decode(body, &stats)
	assert.Greater(t, stats.TotalRequests, 5)
}

func TestCompleteTask_OnlyOwnAssignments(t *testing.T) {
	s, admin, ada, bob := staffed(t)

	path := fmt.Sprintf("/api/admin/employees/%d/custom-tasks", employeeID(t, s, bob))
	resp, body := s.do(http.MethodPost, path, admin, fiber.Map{"title": "Bob-only ad-hoc", "description": "private"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var custom Models.EmployeeTask
	s.decode(body, &custom)

	for _, taskID := range []uint{custom.TaskID, s.tasks.legacy.ID} {
		resp, body = s.do(http.MethodPost, fmt.Sprintf("/api/me/tasks/%d/complete", taskID), ada, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.NotContains(t, string(body), "private")
	}

	_, body = s.do(http.MethodGet, "/api/me/tasks", ada, nil)
	var tasks []Models.EmployeeTask
	s.decode(body, &tasks)
	assert.Len(t, tasks, 3)

	_, body = s.do(http.MethodGet, "/api/me/tasks", bob, nil)
	s.decode(body, &tasks)
	require.Len(t, tasks, 4)
	for _, task := range tasks {
		if task.TaskID == custom.TaskID {
			assert.False(t, task.Completed)
		}
	}
}
