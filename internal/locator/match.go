package locator

import (
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"tb-storyboard/internal/entity"
)

// Predicate is a pure test over one snapshotted element.
type Predicate func(el entity.Element, q Query) bool

func all(preds ...Predicate) Predicate {
	return func(el entity.Element, q Query) bool {
		for _, p := range preds {
			if !p(el, q) {
				return false
			}
		}

		return true
	}
}

func anyOf(preds ...Predicate) Predicate {
	return func(el entity.Element, q Query) bool {
		for _, p := range preds {
			if p(el, q) {
				return true
			}
		}

		return false
	}
}

func not(p Predicate) Predicate {
	return func(el entity.Element, q Query) bool {
		return !p(el, q)
	}
}

func tagIn(tags ...string) Predicate {
	return func(el entity.Element, _ Query) bool {
		return slices.Contains(tags, el.Tag)
	}
}

func ariaRole(role string) Predicate {
	return func(el entity.Element, _ Query) bool {
		return el.Role == role
	}
}

func textEquals(values ...string) Predicate {
	return func(el entity.Element, _ Query) bool {
		return slices.Contains(values, el.Text)
	}
}

func textEqualsFold(values ...string) Predicate {
	return func(el entity.Element, _ Query) bool {
		for _, v := range values {
			if strings.EqualFold(el.Text, v) {
				return true
			}
		}

		return false
	}
}

func textContains(values ...string) Predicate {
	return func(el entity.Element, _ Query) bool {
		for _, v := range values {
			if strings.Contains(el.Text, v) {
				return true
			}
		}

		return false
	}
}

func textContainsFold(values ...string) Predicate {
	return func(el entity.Element, _ Query) bool {
		text := strings.ToLower(el.Text)
		for _, v := range values {
			if strings.Contains(text, strings.ToLower(v)) {
				return true
			}
		}

		return false
	}
}

func textMatches(re *regexp.Regexp) Predicate {
	return func(el entity.Element, _ Query) bool {
		return re.MatchString(el.Text)
	}
}

func ariaLabelContainsFold(values ...string) Predicate {
	return func(el entity.Element, _ Query) bool {
		label := strings.ToLower(el.AriaLabel)
		for _, v := range values {
			if strings.Contains(label, strings.ToLower(v)) {
				return true
			}
		}

		return false
	}
}

func placeholderContainsFold(value string) Predicate {
	return func(el entity.Element, _ Query) bool {
		return strings.Contains(strings.ToLower(el.Placeholder), strings.ToLower(value))
	}
}

// hasIcon matches icon-font ligatures (e.g. "arrow_forward") in the markup.
func hasIcon(tokens ...string) Predicate {
	return func(el entity.Element, _ Query) bool {
		for _, t := range tokens {
			if strings.Contains(el.HTML, t) {
				return true
			}
		}

		return false
	}
}

// leafText matches elements whose own text is one short line and whose
// markup holds no nested containers, so toolbar wrappers never qualify.
func leafText(maxRunes int) Predicate {
	return func(el entity.Element, _ Query) bool {
		if strings.Contains(el.Text, "\n") || utf8.RuneCountInString(el.Text) > maxRunes {
			return false
		}

		html := strings.ToLower(el.HTML)

		return !strings.Contains(html, "<div") && !strings.Contains(html, "<button")
	}
}

func htmlContains(values ...string) Predicate {
	return hasIcon(values...)
}

func hasFileInput() Predicate {
	return func(el entity.Element, _ Query) bool {
		return el.HasFileInput
	}
}

func enabled() Predicate {
	return func(el entity.Element, _ Query) bool {
		return !el.Disabled
	}
}

func topAbove(min float64) Predicate {
	return func(el entity.Element, _ Query) bool {
		return el.BoundingBox.Top() > min
	}
}

func topAtMost(max float64) Predicate {
	return func(el entity.Element, _ Query) bool {
		return el.BoundingBox.Top() <= max
	}
}

func widthBetween(min, max float64) Predicate {
	return func(el entity.Element, _ Query) bool {
		return el.BoundingBox.Width > min && el.BoundingBox.Width < max
	}
}

func widthAbove(min float64) Predicate {
	return func(el entity.Element, _ Query) bool {
		return el.BoundingBox.Width > min
	}
}

// queryTextEquals matches the query's text exactly.
func queryTextEquals() Predicate {
	return func(el entity.Element, q Query) bool {
		return q.Text != "" && el.Text == q.Text
	}
}

func queryTextContains() Predicate {
	return func(el entity.Element, q Query) bool {
		return q.Text != "" && strings.Contains(el.Text, q.Text)
	}
}

func queryTextContainsFold() Predicate {
	return func(el entity.Element, q Query) bool {
		return q.Text != "" && strings.Contains(strings.ToLower(el.Text), strings.ToLower(q.Text))
	}
}
