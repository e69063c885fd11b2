package domain

import (
	"time"

	"github.com/google/uuid"
)

// WidgetKey is the public identifier embedded in a tenant's pages.
// It is the only widget identifier visitors ever see.
type WidgetKey string

type WidgetConfig struct {
	ID       uuid.UUID
	TenantID uuid.UUID

	ProjectID uuid.UUID
	DomainID  uuid.UUID
	Key       WidgetKey
	Name      string
	IsActive  bool

	Appearance    Appearance
	Messaging     Messaging
	Behavior      Behavior
	BusinessHours BusinessHours

	UpdatedAt time.Time
}

type Appearance struct {
	PrimaryColor   string
	SecondaryColor string
	Position       string
	Shape          string
	BubbleStyle    string
	Size           string
	Animation      string
}

type Messaging struct {
	Welcome  string
	Offline  string
	Away     string
	Greeting string
}

type Behavior struct {
	AutoOpenDelay    int
	ShowAgentAvatars bool
	AllowFileUploads bool
	RequireEmail     bool
	SoundEnabled     bool
}

// BusinessHours maps a lowercase weekday name ("monday") to its schedule.
// A missing day means closed all day.
type BusinessHours map[string]DaySchedule

type DaySchedule struct {
	Open   string
	Close  string
	Closed bool
}
