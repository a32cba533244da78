package domain

import (
	"errors"
	"testing"
)

func TestCompanyValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		company Company
		wantErr bool
	}{
		{name: "valid", company: Company{Domain: "acme.com", Name: "Acme Holdings"}},
		{name: "missing domain", company: Company{Name: "Acme Holdings"}, wantErr: true},
		{name: "blank domain", company: Company{Domain: "   ", Name: "Acme Holdings"}, wantErr: true},
		{name: "missing name", company: Company{Domain: "acme.com"}, wantErr: true},
		{name: "blank name", company: Company{Domain: "acme.com", Name: "   "}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.company.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrValidation) {
					t.Fatalf("Validate() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() error = %v, want nil", err)
			}
		})
	}
}

func TestJobStatusIsValid(t *testing.T) {
	t.Parallel()

	valid := []JobStatus{
		JobStatusPending, JobStatusProcessing, JobStatusCompleted,
		JobStatusPartialFailure, JobStatusFailed,
	}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("IsValid(%s) = false, want true", s)
		}
	}
	if JobStatus("RUNNING").IsValid() {
		t.Error("IsValid(RUNNING) = true, want false")
	}
}

func TestValidateLinkedInURL(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		url  string
		want string
	}{
		{name: "personal profile", url: "https://linkedin.com/in/jane-doe", want: "https://linkedin.com/in/jane-doe"},
		{name: "trims whitespace", url: "  https://www.linkedin.com/in/jane-doe  ", want: "https://www.linkedin.com/in/jane-doe"},
		{name: "company page", url: "https://linkedin.com/company/acme", want: ""},
		{name: "post link", url: "https://linkedin.com/posts/acme_update", want: ""},
		{name: "jobs link", url: "https://linkedin.com/jobs/view/123", want: ""},
		{name: "not linkedin", url: "https://example.com/jane", want: ""},
		{name: "non linkedin with in segment", url: "https://example.com/in/profile", want: ""},
		{name: "empty", url: "", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := ValidateLinkedInURL(tc.url); got != tc.want {
				t.Fatalf("ValidateLinkedInURL(%q) = %q, want %q", tc.url, got, tc.want)
			}
		})
	}
}
