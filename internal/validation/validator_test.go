// Govportal - Government Information Portal and Content Management
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/govportal

package validation

import (
	"strings"
	"testing"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return one non-nil instance")
	}
}

type signupForm struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Role     string `json:"role" validate:"required,oneof=admin editor viewer"`
	Bio      string `json:"bio" validate:"max=10"`
	Internal string `json:"-" validate:"max=3"`
	Age      int    `validate:"min=18"`
}

func validForm() signupForm {
	return signupForm{
		Username: "rina.s",
		Email:    "rina@desa.go.id",
		Phone:    "+62 (361) 555-0101",
		Role:     "editor",
		Age:      30,
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	f := validForm()
	if verr := ValidateStruct(&f); verr != nil {
		t.Fatalf("ValidateStruct() = %v, want nil", verr)
	}
}

func TestValidateStruct_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*signupForm)
		wantField string
		wantTag   string
		wantMsg   string
	}{
		{"missing username", func(f *signupForm) { f.Username = "" }, "username", "required", "username is required"},
		{"uppercase username", func(f *signupForm) { f.Username = "Rina" }, "username", "username", "lowercase"},
		{"short username", func(f *signupForm) { f.Username = "ab" }, "username", "username", "3-64"},
		{"bad email", func(f *signupForm) { f.Email = "rina@" }, "email", "email", "valid email"},
		{"bad phone", func(f *signupForm) { f.Phone = "call me" }, "phone", "phone", "valid phone"},
		{"unknown role", func(f *signupForm) { f.Role = "owner" }, "role", "oneof", "one of: admin editor viewer"},
		{"long bio", func(f *signupForm) { f.Bio = strings.Repeat("x", 11) }, "bio", "max", "at most 10 characters"},
		{"json dash keeps go name", func(f *signupForm) { f.Internal = "abcd" }, "Internal", "max", "at most 3 characters"},
		{"numeric min", func(f *signupForm) { f.Age = 12 }, "Age", "min", "Age must be at least 18"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := validForm()
			tt.mutate(&f)

			verr := ValidateStruct(&f)
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			fields := verr.Fields()
			if len(fields) != 1 {
				t.Fatalf("got %d field errors (%v), want 1", len(fields), verr)
			}
			got := fields[0]
			if got.Field != tt.wantField || got.Tag != tt.wantTag {
				t.Errorf("field/tag = %s/%s, want %s/%s", got.Field, got.Tag, tt.wantField, tt.wantTag)
			}
			if !strings.Contains(got.Message, tt.wantMsg) {
				t.Errorf("message %q does not contain %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateStruct_MultipleErrorsJoined(t *testing.T) {
	f := signupForm{}
	verr := ValidateStruct(&f)
	if verr == nil {
		t.Fatal("expected errors for empty form")
	}
	if len(verr.Fields()) < 3 {
		t.Errorf("got %d field errors, want at least 3", len(verr.Fields()))
	}
	if !strings.Contains(verr.Error(), "; ") {
		t.Errorf("Error() = %q, want messages joined with '; '", verr.Error())
	}
}

func TestValidateStruct_NonStruct(t *testing.T) {
	verr := ValidateStruct("not a struct")
	if verr == nil || len(verr.Fields()) != 1 || verr.Fields()[0].Field != "body" {
		t.Errorf("ValidateStruct(string) = %v, want one body error", verr)
	}
}

func TestRequestValidationError_Empty(t *testing.T) {
	var ve RequestValidationError
	if ve.Error() != "validation failed" {
		t.Errorf("Error() = %q", ve.Error())
	}
}
