package syncer

import (
	"fmt"
	"regexp"

	"github.com/chxlky/homework-board-sync/config"
)

type denyRule struct {
	subject *regexp.Regexp
	title   *regexp.Regexp
}

// Denylist drops known noise, such as in-class game sessions that an instructor
// files as homework.
type Denylist struct {
	rules []denyRule
}

func NewDenylist(rules []config.DenyRule) (*Denylist, error) {
	d := &Denylist{}
	for i, r := range rules {
		var rule denyRule
		var err error
		if r.Subject != "" {
			if rule.subject, err = regexp.Compile(r.Subject); err != nil {
				return nil, fmt.Errorf("denylist rule %d: invalid subject pattern: %w", i, err)
			}
		}
		if r.Title != "" {
			if rule.title, err = regexp.Compile(r.Title); err != nil {
				return nil, fmt.Errorf("denylist rule %d: invalid title pattern: %w", i, err)
			}
		}
		if rule.subject == nil && rule.title == nil {
			return nil, fmt.Errorf("denylist rule %d: needs a subject or title pattern", i)
		}
		d.rules = append(d.rules, rule)
	}
	return d, nil
}

func (d *Denylist) Excludes(subject, title string) bool {
	if d == nil {
		return false
	}
	for _, r := range d.rules {
		if r.subject != nil && !r.subject.MatchString(subject) {
			continue
		}
		if r.title != nil && !r.title.MatchString(title) {
			continue
		}
		return true
	}
	return false
}
