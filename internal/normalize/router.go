package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ginjaninja78/webshop-sales-report/internal/config"
	"github.com/ginjaninja78/webshop-sales-report/internal/types"
)

// Router maps payment-method labels to categories by exact match.
type Router struct {
	routes  map[string]types.Category
	toOther bool
}

// NewRouter builds a router from a label → category name map and an
// unknown-method policy (config.UnknownMethodError or config.UnknownMethodOther).
func NewRouter(labels map[string]string, policy string) (*Router, error) {
	r := &Router{routes: make(map[string]types.Category, len(labels))}

	for label, name := range labels {
		category, err := types.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("label %q: %w", label, err)
		}
		r.routes[strings.TrimSpace(label)] = category
	}

	switch policy {
	case config.UnknownMethodError, "":
	case config.UnknownMethodOther:
		r.toOther = true
	default:
		return nil, fmt.Errorf("unknown payment method policy %q", policy)
	}

	return r, nil
}

// Route returns the category of label.
//
// RETURNS:
//   - ErrUnknownPaymentMethod when label is not configured and the policy is "error"
//   - Other when label is not configured and the policy is "other"
func (r *Router) Route(label string) (types.Category, error) {
	if category, ok := r.routes[strings.TrimSpace(label)]; ok {
		return category, nil
	}
	if r.toOther {
		return types.Other, nil
	}
	return "", fmt.Errorf("%w: %q (known: %s)", types.ErrUnknownPaymentMethod,
		label, strings.Join(r.Labels(), ", "))
}

// Labels returns the configured labels, sorted.
func (r *Router) Labels() []string {
	out := make([]string, 0, len(r.routes))
	for label := range r.routes {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
