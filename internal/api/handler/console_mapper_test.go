package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/darziflow/console/internal/core/domain"
	"github.com/darziflow/console/internal/infrastructure/apiclient"
)

func TestParseStages(t *testing.T) {
	stages, err := parseStages("Cutting | d1\n\n  Stitching|d2  \r\nFinishing | d3")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []domain.Stage{
		{Sequence: 1, Name: "Cutting", DepartmentID: "d1"},
		{Sequence: 2, Name: "Stitching", DepartmentID: "d2"},
		{Sequence: 3, Name: "Finishing", DepartmentID: "d3"},
	}
	if len(stages) != len(want) {
		t.Fatalf("expected %d stages, got %+v", len(want), stages)
	}
	for i := range want {
		if stages[i] != want[i] {
			t.Fatalf("stage %d: expected %+v, got %+v", i, want[i], stages[i])
		}
	}
}

func TestParseStages_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":          "  \n ",
		"no separator":   "Cutting",
		"no department":  "Cutting | ",
		"no stage name":  " | d1",
		"bad second row": "Cutting | d1\nStitching",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseStages(text)
			var ve *validationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestToOrderInput(t *testing.T) {
	in, err := toOrderInput(orderRequest{Customer: " Khaadi ", Garment: "Kurta", Quantity: 3, DueDate: "2026-11-30"})
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if in.Customer != "Khaadi" || len(in.Items) != 1 || in.Items[0].Quantity != 3 {
		t.Fatalf("unexpected input %+v", in)
	}
	if !in.DueDate.Equal(time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due date %v", in.DueDate)
	}

	if _, err := toOrderInput(orderRequest{DueDate: "30/11/2026"}); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestToOrderFilter(t *testing.T) {
	f := toOrderFilter(" qc ", " zara ")
	if f.Status != domain.OrderQC || f.Search != "zara" {
		t.Fatalf("unexpected filter %+v", f)
	}
}

func TestIsInline(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"validation", &validationError{msg: "name is required"}, true},
		{"credentials", fmt.Errorf("login: %w", domain.ErrInvalidCredentials), true},
		{"bad request", &apiclient.Error{Kind: apiclient.KindStatus, Status: http.StatusBadRequest}, true},
		{"conflict", &apiclient.Error{Kind: apiclient.KindStatus, Status: http.StatusConflict}, true},
		{"not found", &apiclient.Error{Kind: apiclient.KindStatus, Status: http.StatusNotFound, Err: domain.ErrNotFound}, false},
		{"server error", &apiclient.Error{Kind: apiclient.KindStatus, Status: http.StatusBadGateway}, false},
		{"expired", &apiclient.Error{Kind: apiclient.KindUnauthorized, Status: http.StatusUnauthorized, Err: domain.ErrSessionExpired}, false},
		{"transport", &apiclient.Error{Kind: apiclient.KindTransport, Err: errors.New("refused")}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isInline(tc.err); got != tc.want {
				t.Fatalf("isInline = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestValidatorMessages(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&changePasswordRequest{CurrentPassword: "x", NewPassword: "short", ConfirmPassword: "other"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	want := "newpassword must be at least 8 characters; confirmpassword must match newpassword"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if domain.MessageOf(err) != want {
		t.Fatal("validation errors must carry their own user message")
	}
}
