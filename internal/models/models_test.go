package models

import "testing"

func TestSignupRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     SignupRequest
		wantErr bool
	}{
		{"valid", SignupRequest{Email: "a@b.com", Password: "longenough", FullName: "Ada"}, false},
		{"bad email", SignupRequest{Email: "nope", Password: "longenough", FullName: "Ada"}, true},
		{"short password", SignupRequest{Email: "a@b.com", Password: "short", FullName: "Ada"}, true},
		{"missing name", SignupRequest{Email: "a@b.com", Password: "longenough"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRevisionRequestValidate(t *testing.T) {
	if err := (RevisionRequest{Message: "make it blue"}).Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
	if err := (RevisionRequest{}).Validate(); err == nil {
		t.Error("empty message should be rejected")
	}
}

func TestCreateProjectRequestValidate(t *testing.T) {
	if err := (CreateProjectRequest{Prompt: "a bakery site"}).Validate(); err != nil {
		t.Errorf("valid request rejected: %v", err)
	}
	if err := (CreateProjectRequest{}).Validate(); err == nil {
		t.Error("empty prompt should be rejected")
	}
}

func TestCheckoutRequestValidate(t *testing.T) {
	for _, plan := range []string{"basic", "pro", "enterprise"} {
		if err := (CheckoutRequest{PlanID: plan}).Validate(); err != nil {
			t.Errorf("plan %q rejected: %v", plan, err)
		}
	}
	if err := (CheckoutRequest{PlanID: "platinum"}).Validate(); err == nil {
		t.Error("unknown plan should be rejected")
	}
	if err := (CheckoutRequest{}).Validate(); err == nil {
		t.Error("missing plan should be rejected")
	}
}
