package cli

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
)

// Prompter asks the user for missing input.
type Prompter interface {
	// Confirm asks a yes/no question.
	Confirm(title, description string) (bool, error)

	// DailyTarget asks for a positive number of tasks per day.
	DailyTarget(category string, current int) (int, error)

	// Login asks for the fields of creds that are still empty.
	Login(creds *loginInput) error
}

// loginInput is filled from flags first, then from the login form.
type loginInput struct {
	BaseURL   string
	UserID    string
	SessionID string
	CSRFToken string
}

// huhPrompter implements Prompter with huh forms.
type huhPrompter struct{}

func (huhPrompter) Confirm(title, description string) (bool, error) {
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&ok),
		),
	).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func (huhPrompter) DailyTarget(category string, current int) (int, error) {
	value := strconv.Itoa(current)
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("%s daily goal", category)).
				Description("How many tasks do you want to finish per day?").
				Value(&value).
				Validate(validateTarget),
		),
	).Run()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(value))
}

func (huhPrompter) Login(in *loginInput) error {
	var fields []huh.Field
	if in.BaseURL == "" {
		fields = append(fields, huh.NewInput().
			Title("Server URL").
			Description("Study Tracker server (e.g., https://studytrack.example.com)").
			Placeholder("https://studytrack.example.com").
			Value(&in.BaseURL).
			Validate(validateURL))
	}
	if in.UserID == "" {
		fields = append(fields, huh.NewInput().
			Title("User").
			Description("Your username; cached data is kept per user").
			Value(&in.UserID).
			Validate(validateRequired("User")))
	}
	if in.SessionID == "" {
		fields = append(fields, huh.NewInput().
			Title("Session cookie").
			Description("Value of the sessionid cookie from a signed-in browser").
			EchoMode(huh.EchoModePassword).
			Value(&in.SessionID).
			Validate(validateRequired("Session cookie")))
	}
	if in.CSRFToken == "" {
		fields = append(fields, huh.NewInput().
			Title("CSRF token").
			Description("Value of the csrftoken cookie (optional)").
			EchoMode(huh.EchoModePassword).
			Value(&in.CSRFToken))
	}
	if len(fields) == 0 {
		return nil
	}
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

func validateRequired(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func validateURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("enter an absolute URL such as https://studytrack.example.com")
	}
	return nil
}

func validateTarget(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errors.New("enter a whole number of at least 1")
	}
	return nil
}
