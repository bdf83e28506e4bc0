package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	perrors "github.com/parqstat/parqstat/internal/errors"
	"github.com/parqstat/parqstat/pkg/filter"
	"github.com/parqstat/parqstat/pkg/stats"
	"github.com/parqstat/parqstat/pkg/value"
)

// Predicate is one comparison in a stats request. Predicates are combined
// with AND.
type Predicate struct {
	Column string        `json:"column"`
	Op     string        `json:"op"`
	Value  interface{}   `json:"value"`
	Values []interface{} `json:"values,omitempty"`
	Type   string        `json:"type"`
}

// StatsRequest represents a stats request.
type StatsRequest struct {
	Path       string      `json:"path"`
	Projection []string    `json:"projection,omitempty"`
	Predicates []Predicate `json:"predicates,omitempty"`
	Column     string      `json:"column,omitempty"`
	Type       string      `json:"type,omitempty"`
}

// StatsResponse represents the stats response.
type StatsResponse struct {
	RowCount  int64       `json:"row_count"`
	Column    string      `json:"column,omitempty"`
	Min       interface{} `json:"min"`
	Max       interface{} `json:"max"`
	RequestID string      `json:"request_id"`
}

// StatsHandler handles POST /v1/stats requests.
type StatsHandler struct {
	opts stats.Options
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(opts stats.Options) *StatsHandler {
	return &StatsHandler{opts: opts}
}

// ServeHTTP handles the stats HTTP request.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", requestID)
		return
	}

	var req StatsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err), requestID)
		return
	}

	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required", requestID)
		return
	}
	if req.Column != "" && req.Type == "" {
		writeError(w, http.StatusBadRequest, "type is required when column is set", requestID)
		return
	}

	f, err := buildFilter(req.Predicates)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	var s *stats.Stats
	if req.Projection != nil {
		s, err = stats.OpenWithProjection(r.Context(), req.Path, h.opts, f, req.Projection)
	} else {
		s, err = stats.Open(r.Context(), req.Path, h.opts, f)
	}
	if err != nil {
		writeError(w, statusFor(err), err.Error(), requestID)
		return
	}

	count, err := s.RecordCount(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error(), requestID)
		return
	}

	resp := StatsResponse{
		RowCount:  count,
		RequestID: requestID,
	}

	if req.Column != "" {
		resp.Column = req.Column
		min, max, err := extrema(r, s, req.Column, req.Type)
		if err != nil {
			writeError(w, statusFor(err), err.Error(), requestID)
			return
		}
		resp.Min = min
		resp.Max = max
	}

	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps structured errors to HTTP status codes.
func statusFor(err error) int {
	switch perrors.GetCategory(err) {
	case perrors.ErrCategoryValidation:
		return http.StatusBadRequest
	case perrors.ErrCategoryStorage:
		if perrors.GetCode(err) == perrors.CodeObjectNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// buildFilter converts the request predicates into a filter tree.
func buildFilter(preds []Predicate) (filter.Filter, error) {
	if len(preds) == 0 {
		return filter.Noop, nil
	}

	terms := make([]filter.Filter, 0, len(preds))
	for _, p := range preds {
		if p.Column == "" {
			return nil, fmt.Errorf("predicate column is required")
		}

		if p.Op == "in" {
			vals := make([]value.Raw, 0, len(p.Values))
			for _, v := range p.Values {
				raw, err := rawFromJSON(p.Type, v)
				if err != nil {
					return nil, err
				}
				vals = append(vals, raw)
			}
			terms = append(terms, filter.In(p.Column, vals...))
			continue
		}

		raw, err := rawFromJSON(p.Type, p.Value)
		if err != nil {
			return nil, err
		}
		switch p.Op {
		case "eq":
			terms = append(terms, filter.Eq(p.Column, raw))
		case "lt":
			terms = append(terms, filter.Lt(p.Column, raw))
		case "le":
			terms = append(terms, filter.Le(p.Column, raw))
		case "gt":
			terms = append(terms, filter.Gt(p.Column, raw))
		case "ge":
			terms = append(terms, filter.Ge(p.Column, raw))
		default:
			return nil, fmt.Errorf("unsupported predicate op: %s", p.Op)
		}
	}

	if len(terms) == 1 {
		return terms[0], nil
	}
	return filter.And(terms...), nil
}

// rawFromJSON converts a JSON-decoded value into a typed raw value.
func rawFromJSON(typ string, v interface{}) (value.Raw, error) {
	switch typ {
	case "int64", "int32":
		n, ok := v.(float64)
		if !ok {
			return value.Raw{}, fmt.Errorf("expected number for type %s, got %T", typ, v)
		}
		if typ == "int32" {
			return value.Int32Value(int32(n)), nil
		}
		return value.Int64Value(int64(n)), nil
	case "double", "float":
		n, ok := v.(float64)
		if !ok {
			return value.Raw{}, fmt.Errorf("expected number for type %s, got %T", typ, v)
		}
		if typ == "float" {
			return value.FloatValue(float32(n)), nil
		}
		return value.DoubleValue(n), nil
	case "boolean":
		b, ok := v.(bool)
		if !ok {
			return value.Raw{}, fmt.Errorf("expected boolean, got %T", v)
		}
		return value.BoolValue(b), nil
	case "string":
		s, ok := v.(string)
		if !ok {
			return value.Raw{}, fmt.Errorf("expected string, got %T", v)
		}
		return value.StringValue(s), nil
	default:
		return value.Raw{}, fmt.Errorf("unsupported value type: %s", typ)
	}
}

// extrema computes min and max of the requested column decoded per its
// declared type.
func extrema(r *http.Request, s *stats.Stats, column, typ string) (interface{}, interface{}, error) {
	ctx := r.Context()
	switch typ {
	case "int64":
		return columnExtrema(ctx, s, column, value.Int64Codec{})
	case "int32":
		return columnExtrema(ctx, s, column, value.Int32Codec{})
	case "double":
		return columnExtrema(ctx, s, column, value.Float64Codec{})
	case "float":
		return columnExtrema(ctx, s, column, value.Float32Codec{})
	case "boolean":
		return columnExtrema(ctx, s, column, value.BoolCodec{})
	case "string":
		return columnExtrema(ctx, s, column, value.StringCodec{})
	default:
		return nil, nil, fmt.Errorf("unsupported column type: %s", typ)
	}
}

func columnExtrema[T any](ctx context.Context, s *stats.Stats, column string, codec value.Codec[T]) (interface{}, interface{}, error) {
	min, err := stats.Min(ctx, s, column, codec)
	if err != nil {
		return nil, nil, err
	}
	max, err := stats.Max(ctx, s, column, codec)
	if err != nil {
		return nil, nil, err
	}
	var lo, hi interface{}
	if min != nil {
		lo = *min
	}
	if max != nil {
		hi = *max
	}
	return lo, hi, nil
}
