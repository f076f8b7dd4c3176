// Package notify sends deployment notifications to chat webhooks.
package notify

import (
	"context"
	"fmt"
	"strings"
)

// Severity levels for notifications.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event represents a notification to send.
type Event struct {
	Title    string            // Short title/subject
	Message  string            // Full message body
	Severity Severity          // Event severity
	Source   string            // What generated this (e.g., "render", "envcheck")
	Metadata map[string]string // Additional context (host, template, etc.)
}

// Sender delivers events to a notification backend.
type Sender interface {
	Name() string
	Send(ctx context.Context, event *Event) error
	IsConfigured() bool
}

// RenderSuccess builds an event for a completed config render.
func RenderSuccess(output, imageTag string) *Event {
	return &Event{
		Title:    "Config Rendered",
		Message:  fmt.Sprintf("Rendered OvenMediaEngine config to %s", output),
		Severity: SeverityInfo,
		Source:   "render",
		Metadata: map[string]string{"output": output, "image_tag": imageTag},
	}
}

// RenderFailure builds an event for a failed config render.
func RenderFailure(template, reason string) *Event {
	return &Event{
		Title:    "Config Render Failed",
		Message:  fmt.Sprintf("Failed to render %s: %s", template, reason),
		Severity: SeverityError,
		Source:   "render",
		Metadata: map[string]string{"template": template, "error": reason},
	}
}

// EnvDrift builds an event reporting env default mismatches between the
// quickstart script and the CI seed.
func EnvDrift(mismatches []string) *Event {
	return &Event{
		Title:    "Env Defaults Drift",
		Message:  strings.Join(mismatches, "\n"),
		Severity: SeverityWarning,
		Source:   "envcheck",
		Metadata: map[string]string{"mismatch_count": fmt.Sprintf("%d", len(mismatches))},
	}
}
