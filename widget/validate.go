package widget

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"chat-core/domain"
)

var validate = validator.New()

// configRules mirrors the administrative update contract: colors are #RRGGBB,
// position and shape come from closed sets, delays are bounded.
type configRules struct {
	Name           string `validate:"required,max=255"`
	PrimaryColor   string `validate:"omitempty,hexcolor"`
	SecondaryColor string `validate:"omitempty,hexcolor"`
	Position       string `validate:"omitempty,oneof=bottom-right bottom-left"`
	Shape          string `validate:"omitempty,oneof=rounded square"`
	BubbleStyle    string `validate:"omitempty,oneof=modern classic minimal bot"`
	Welcome        string `validate:"omitempty,max=500"`
	Offline        string `validate:"omitempty,max=500"`
	Greeting       string `validate:"omitempty,max=500"`
	AutoOpenDelay  int    `validate:"min=0,max=60"`
}

func validateConfig(cfg domain.WidgetConfig) error {
	rules := configRules{
		Name:           cfg.Name,
		PrimaryColor:   cfg.Appearance.PrimaryColor,
		SecondaryColor: cfg.Appearance.SecondaryColor,
		Position:       cfg.Appearance.Position,
		Shape:          cfg.Appearance.Shape,
		BubbleStyle:    cfg.Appearance.BubbleStyle,
		Welcome:        cfg.Messaging.Welcome,
		Offline:        cfg.Messaging.Offline,
		Greeting:       cfg.Messaging.Greeting,
		AutoOpenDelay:  cfg.Behavior.AutoOpenDelay,
	}
	if err := validate.Struct(rules); err != nil {
		return fmt.Errorf("widget configuration rejected: %w", err)
	}
	return nil
}
