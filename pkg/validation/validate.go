package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"campusboard/pkg/models"
)

// Rules drive write-boundary validation. They are built from config at
// startup and set once via SetRules.
type Rules struct {
	MaxBodyLen    int
	Topics        []string
	ReactionTypes []string
}

var rules = Rules{
	MaxBodyLen:    2000,
	Topics:        models.DefaultTopics(),
	ReactionTypes: models.DefaultReactionTypes(),
}

func SetRules(r Rules) {
	if r.MaxBodyLen <= 0 {
		r.MaxBodyLen = 2000
	}
	if len(r.Topics) == 0 {
		r.Topics = models.DefaultTopics()
	}
	if len(r.ReactionTypes) == 0 {
		r.ReactionTypes = models.DefaultReactionTypes()
	}
	rules = r
}

// ValidatePost checks an incoming post or reply before it reaches storage.
// Parent existence and depth are the store's concern; this only checks the
// shape of the record itself.
func ValidatePost(p models.Post) error {
	var errs []string
	body := strings.TrimSpace(p.Body)
	if body == "" {
		errs = append(errs, "body is required")
	}
	if n := utf8.RuneCountInString(p.Body); n > rules.MaxBodyLen {
		errs = append(errs, fmt.Sprintf("body too long: %d > %d", n, rules.MaxBodyLen))
	}
	if p.Author == "" {
		errs = append(errs, "author is required")
	}
	// Replies inherit the parent's topic; only top-level posts carry one.
	if p.ParentID == "" {
		if err := ValidateTopic(p.Topic); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ValidateTopic checks topic membership against the configured set.
func ValidateTopic(topic string) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	if !contains(rules.Topics, topic) {
		return fmt.Errorf("unknown topic: %s", topic)
	}
	return nil
}

// ValidateReactionType checks membership in the configured reaction set.
func ValidateReactionType(t string) error {
	if t == "" {
		return errors.New("reaction type is required")
	}
	if !contains(rules.ReactionTypes, t) {
		return fmt.Errorf("unknown reaction type: %s", t)
	}
	return nil
}

// ReactionTypes returns the active reaction vocabulary.
func ReactionTypes() []string {
	return append([]string{}, rules.ReactionTypes...)
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
