package locator

import (
	"context"

	"tb-storyboard/internal/entity"
	"tb-storyboard/pkg/logg"

	"go.uber.org/zap"
)

const locatorName = "Locator"

// Query names a role plus the context some roles need: the option text to
// pick, or which match to return (negative Index counts from the end).
type Query struct {
	Role  Role
	Text  string
	Index int
}

func For(role Role) Query {
	return Query{Role: role}
}

func (q Query) WithText(text string) Query {
	q.Text = text

	return q
}

func (q Query) WithIndex(index int) Query {
	q.Index = index

	return q
}

// Snapshotter is the slice of the page driver the locator reads from.
type Snapshotter interface {
	Snapshot(ctx context.Context, selectors []string) ([]entity.Element, error)
}

// Locator finds live elements for roles. A role that matches nothing is a
// normal outcome (found == false), not an error; errors mean the page could
// not be sampled at all.
type Locator struct {
	page   Snapshotter
	logger *zap.Logger
}

func New(page Snapshotter, logger *zap.Logger) *Locator {
	return &Locator{
		page:   page,
		logger: logger.With(zap.String(logg.Layer, locatorName)),
	}
}

// Find walks the role's strategies in order and returns the first match of
// the first strategy that yields one. Results of different strategies are
// never merged.
func (l *Locator) Find(ctx context.Context, q Query) (entity.Element, bool, error) {
	for _, s := range Strategies(q.Role) {
		elements, err := l.page.Snapshot(ctx, s.Selectors)
		if err != nil {
			return entity.Element{}, false, err
		}

		if el, ok := pick(Apply(s, elements, q), q.Index); ok {
			l.logger.Debug("Role located",
				zap.String(logg.Role, string(q.Role)),
				zap.String("strategy", s.Name),
				zap.String(logg.Handle, el.Handle))

			return el, true, nil
		}
	}

	l.logger.Debug("Role not found", zap.String(logg.Role, string(q.Role)), zap.String("text", q.Text))

	return entity.Element{}, false, nil
}

// Count returns how many elements the first matching strategy yields.
func (l *Locator) Count(ctx context.Context, q Query) (int, error) {
	for _, s := range Strategies(q.Role) {
		elements, err := l.page.Snapshot(ctx, s.Selectors)
		if err != nil {
			return 0, err
		}

		if n := len(Apply(s, elements, q)); n > 0 {
			return n, nil
		}
	}

	return 0, nil
}

// Apply runs one strategy over a snapshot.
func Apply(s Strategy, elements []entity.Element, q Query) []entity.Element {
	var matches []entity.Element

	for _, el := range elements {
		if s.Match(el, q) {
			matches = append(matches, el)
		}
	}

	if s.Reduce != nil && len(matches) > 0 {
		matches = s.Reduce(matches)
	}

	return matches
}

// Resolve is Find over an already captured snapshot.
func Resolve(snapshot []entity.Element, q Query) (entity.Element, string, bool) {
	for _, s := range Strategies(q.Role) {
		if el, ok := pick(Apply(s, snapshot, q), q.Index); ok {
			return el, s.Name, true
		}
	}

	return entity.Element{}, "", false
}

func pick(matches []entity.Element, index int) (entity.Element, bool) {
	if index < 0 {
		index += len(matches)
	}

	if index < 0 || index >= len(matches) {
		return entity.Element{}, false
	}

	return matches[index], true
}
