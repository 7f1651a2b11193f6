package location

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"backend-meetspot/internal/shared/apperr"
)

// Apply validates p against current and returns the patched copy.
// current is never modified, so a rejected patch leaves nothing half applied.
func Apply(current Detailed, p Patch) (Detailed, error) {
	if len(p.After) == 0 && len(p.Tags) == 0 {
		return Detailed{}, fmt.Errorf("%w: patch changes nothing", apperr.ErrInvalidHistory)
	}

	next := current.clone()

	if p.After != nil {
		updates, err := parseFieldUpdates(p.Before, p.After)
		if err != nil {
			return Detailed{}, err
		}
		for _, u := range updates {
			if !u.matches(&next) {
				return Detailed{}, fmt.Errorf("%w: field %q", apperr.ErrInvalidBeforeData, u.Field())
			}
			u.apply(&next)
		}
	}

	if err := applyTagChanges(next.Tags, p.Tags); err != nil {
		return Detailed{}, err
	}
	return next, nil
}

func applyTagChanges(tags map[string]string, changes map[string]TagChange) error {
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, tag := range keys {
		change := changes[tag]
		current, exists := tags[tag]

		switch change.Mode {
		case TagModeAdd:
			if change.Content.IsPair {
				return fmt.Errorf("%w: tag %q: add takes a single value", apperr.ErrInvalidHistory, tag)
			}
			if exists {
				return fmt.Errorf("%w: %q", apperr.ErrTagExists, tag)
			}
			tags[tag] = change.Content.Value
		case TagModeDelete:
			if change.Content.IsPair {
				return fmt.Errorf("%w: tag %q: delete takes a single value", apperr.ErrInvalidHistory, tag)
			}
			if !exists {
				return fmt.Errorf("%w: %q", apperr.ErrTagDoesNotExist, tag)
			}
			if current != change.Content.Value {
				return fmt.Errorf("%w: tag %q", apperr.ErrInvalidBeforeData, tag)
			}
			delete(tags, tag)
		case TagModeChange:
			if !change.Content.IsPair {
				return fmt.Errorf("%w: tag %q: change takes an [old, new] pair", apperr.ErrInvalidHistory, tag)
			}
			if !exists {
				return fmt.Errorf("%w: %q", apperr.ErrTagDoesNotExist, tag)
			}
			if current != change.Content.Old {
				return fmt.Errorf("%w: tag %q", apperr.ErrInvalidBeforeData, tag)
			}
			tags[tag] = change.Content.New
		default:
			return fmt.Errorf("%w: tag %q: unknown mode %q", apperr.ErrInvalidHistory, tag, change.Mode)
		}
	}
	return nil
}

func (d Detailed) clone() Detailed {
	c := d
	c.ActivityTypes = slices.Clone(d.ActivityTypes)
	c.Tags = maps.Clone(d.Tags)
	if c.Tags == nil {
		c.Tags = map[string]string{}
	}
	c.Photos = slices.Clone(d.Photos)
	c.Reviews = d.Reviews.clone()
	if d.Name != nil {
		name := *d.Name
		c.Name = &name
	}
	if d.Geometry != nil {
		g := *d.Geometry
		c.Geometry = &g
	}
	return c
}
