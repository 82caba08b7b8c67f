package delivery

import (
	"slices"
	"time"

	"github.com/roach88/deliver/internal/ir"
	"github.com/roach88/deliver/internal/runtime"
)

// attempt is the outcome of running submitted responses through binding,
// validation and processing.
type attempt struct {
	Type      ir.ItemEventType
	Responses []ir.CandidateResponse
	Unbound   []string
	Invalid   []string
}

// handleResponses binds, validates and (when everything is bound and
// valid) processes responses on ctrl. Validation runs only when binding
// fully succeeded. Every submitted identifier gets its own legality.
func handleResponses(ctrl runtime.ItemController, responses map[string]ir.ResponseData, now time.Time) attempt {
	a := attempt{Unbound: ctrl.BindResponses(now, responses)}
	if len(a.Unbound) == 0 {
		a.Invalid = ctrl.ValidateResponses()
	}

	switch {
	case len(a.Unbound) > 0:
		a.Type = ir.ItemEventAttemptBad
	case len(a.Invalid) > 0:
		a.Type = ir.ItemEventAttemptInvalid
	default:
		a.Type = ir.ItemEventAttemptValid
		ctrl.MarkPendingResponseProcessing()
		ctrl.PerformResponseProcessing(now)
	}

	ids := make([]string, 0, len(responses))
	for id := range responses {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		data := responses[id]
		legality := ir.LegalityValid
		switch {
		case slices.Contains(a.Unbound, id):
			legality = ir.LegalityBad
		case slices.Contains(a.Invalid, id):
			legality = ir.LegalityInvalid
		}
		a.Responses = append(a.Responses, ir.CandidateResponse{
			Identifier: id,
			DataType:   data.Type,
			Strings:    data.Strings,
			File:       data.File,
			Legality:   legality,
		})
	}
	return a
}
