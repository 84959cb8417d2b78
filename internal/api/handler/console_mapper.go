package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/core/ports"
)

const dateLayout = "2006-01-02"

// --- Form → backend input ---

func toDepartmentInput(r departmentRequest) ports.DepartmentInput {
	return ports.DepartmentInput{
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		HeadEmail:   strings.TrimSpace(r.HeadEmail),
	}
}

func toOperationInput(r operationRequest) (ports.OperationInput, error) {
	stages, err := parseStages(r.Stages)
	if err != nil {
		return ports.OperationInput{}, err
	}
	return ports.OperationInput{Name: strings.TrimSpace(r.Name), Stages: stages}, nil
}

// parseStages reads one stage per line as "name | departmentId". Blank lines
// are skipped; sequence numbers follow line order starting at 1.
func parseStages(text string) ([]domain.Stage, error) {
	var stages []domain.Stage
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		name, dept, ok := strings.Cut(line, "|")
		name, dept = strings.TrimSpace(name), strings.TrimSpace(dept)
		if !ok || name == "" || dept == "" {
			return nil, &validationError{msg: fmt.Sprintf("stage on line %d must look like \"name | departmentId\"", i+1)}
		}
		stages = append(stages, domain.Stage{
			Sequence:     len(stages) + 1,
			Name:         name,
			DepartmentID: dept,
		})
	}
	if len(stages) == 0 {
		return nil, &validationError{msg: "at least one stage is required"}
	}
	return stages, nil
}

func toCheckpointInput(r checkpointRequest) ports.QCCheckpointInput {
	return ports.QCCheckpointInput{
		Name:        strings.TrimSpace(r.Name),
		OperationID: strings.TrimSpace(r.OperationID),
		Stage:       r.Stage,
		Criteria:    strings.TrimSpace(r.Criteria),
	}
}

func toOrderInput(r orderRequest) (ports.OrderInput, error) {
	due, err := time.Parse(dateLayout, r.DueDate)
	if err != nil {
		return ports.OrderInput{}, &validationError{msg: "duedate must be a date (YYYY-MM-DD)"}
	}
	return ports.OrderInput{
		Customer:    strings.TrimSpace(r.Customer),
		OperationID: strings.TrimSpace(r.OperationID),
		Items:       []domain.OrderItem{{Garment: strings.TrimSpace(r.Garment), Quantity: r.Quantity}},
		DueDate:     due.UTC(),
	}, nil
}

func toOrderFilter(status, search string) ports.OrderFilter {
	return ports.OrderFilter{
		Status: domain.OrderStatus(strings.ToUpper(strings.TrimSpace(status))),
		Search: strings.TrimSpace(search),
	}
}

func toUserInput(r userRequest) ports.UserInput {
	return ports.UserInput{
		Name:       strings.TrimSpace(r.Name),
		Email:      strings.TrimSpace(r.Email),
		Password:   r.Password,
		Role:       domain.ParseRole(r.Role),
		Department: strings.TrimSpace(r.Department),
	}
}

// --- Audit events → JSON ---

func toSessionEventsResponse(events []domain.SessionEvent) sessionEventsResponse {
	out := make([]sessionEventResponse, len(events))
	for i, ev := range events {
		out[i] = sessionEventResponse{
			ID:     ev.ID,
			Kind:   string(ev.Kind),
			Email:  ev.Email,
			Path:   ev.Path,
			Detail: ev.Detail,
			At:     ev.At.UTC().Format(time.RFC3339),
		}
		if ev.Role != domain.RoleUnknown {
			out[i].Role = ev.Role.String()
		}
	}
	return sessionEventsResponse{Data: out}
}
