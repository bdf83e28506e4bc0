// Package main implements the parqstat-query binary.
// It computes row counts and per-column min/max over parquet files from the
// command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/parqstat/parqstat/internal/config"
	"github.com/parqstat/parqstat/pkg/filter"
	"github.com/parqstat/parqstat/pkg/stats"
	"github.com/parqstat/parqstat/pkg/value"
)

// whereFlags collects repeated -where clauses.
type whereFlags []string

func (w *whereFlags) String() string { return strings.Join(*w, ", ") }

func (w *whereFlags) Set(s string) error {
	*w = append(*w, s)
	return nil
}

func main() {
	var (
		configFile string
		path       string
		column     string
		colType    string
		projection string
		wheres     whereFlags
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&path, "path", "", "Parquet file, directory, or s3:// prefix")
	flag.StringVar(&column, "column", "", "Column to compute min/max for")
	flag.StringVar(&colType, "type", "int64", "Column type: int64, int32, double, float, boolean, string")
	flag.StringVar(&projection, "projection", "", "Comma-separated columns to restrict filtered scans to")
	flag.Var(&wheres, "where", "Filter clause \"column OP literal\" (repeatable, clauses are ANDed)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: parqstat-query -path <path> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  parqstat-query -path ./events.parquet\n")
		fmt.Fprintf(os.Stderr, "  parqstat-query -path ./events/ -where \"idx > 16\" -where \"idx <= 116\" -column idx\n")
		fmt.Fprintf(os.Stderr, "  parqstat-query -path s3://bucket/events/ -column price -type double\n")
	}
	flag.Parse()

	if path == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := stats.Options{ScratchDir: cfg.Store.ScratchDir}
	if cfg.Store.S3.Enabled {
		opts.S3 = &stats.S3Options{
			Region:       cfg.Store.S3.Region,
			Endpoint:     cfg.Store.S3.Endpoint,
			UsePathStyle: cfg.Store.S3.UsePathStyle,
		}
	}

	f, err := buildFilter(wheres)
	if err != nil {
		log.Fatalf("Invalid -where clause: %v", err)
	}

	ctx := context.Background()

	var s *stats.Stats
	if projection != "" {
		s, err = stats.OpenWithProjection(ctx, path, opts, f, strings.Split(projection, ","))
	} else {
		s, err = stats.Open(ctx, path, opts, f)
	}
	if err != nil {
		log.Fatalf("Failed to open %s: %v", path, err)
	}

	count, err := s.RecordCount(ctx)
	if err != nil {
		log.Fatalf("Failed to count rows: %v", err)
	}
	fmt.Printf("rows: %d\n", count)

	if column != "" {
		min, max, err := extrema(ctx, s, column, colType)
		if err != nil {
			log.Fatalf("Failed to compute min/max of %s: %v", column, err)
		}
		fmt.Printf("min(%s): %s\n", column, formatResult(min))
		fmt.Printf("max(%s): %s\n", column, formatResult(max))
	}
}

// buildFilter parses the -where clauses into a conjunction.
func buildFilter(wheres []string) (filter.Filter, error) {
	if len(wheres) == 0 {
		return filter.Noop, nil
	}

	terms := make([]filter.Filter, 0, len(wheres))
	for _, clause := range wheres {
		term, err := parseClause(clause)
		if err != nil {
			return nil, err
		}
		terms = append(terms, term)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return filter.And(terms...), nil
}

// parseClause parses one "column OP literal" clause. Integer literals become
// int64, decimal literals double, true/false boolean, everything else string.
func parseClause(clause string) (filter.Filter, error) {
	parts := strings.Fields(clause)
	if len(parts) < 3 {
		return nil, fmt.Errorf("expected \"column OP literal\", got %q", clause)
	}
	col, op := parts[0], parts[1]
	lit := strings.Join(parts[2:], " ")

	v := parseLiteral(lit)
	switch op {
	case "=", "==":
		return filter.Eq(col, v), nil
	case "!=":
		return filter.Not(filter.Eq(col, v)), nil
	case "<":
		return filter.Lt(col, v), nil
	case "<=":
		return filter.Le(col, v), nil
	case ">":
		return filter.Gt(col, v), nil
	case ">=":
		return filter.Ge(col, v), nil
	default:
		return nil, fmt.Errorf("unsupported operator %q in %q", op, clause)
	}
}

func parseLiteral(lit string) value.Raw {
	if n, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return value.Int64Value(n)
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return value.DoubleValue(f)
	}
	if b, err := strconv.ParseBool(lit); err == nil {
		return value.BoolValue(b)
	}
	return value.StringValue(strings.Trim(lit, `'"`))
}

func extrema(ctx context.Context, s *stats.Stats, column, typ string) (interface{}, interface{}, error) {
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
		return nil, nil, fmt.Errorf("unsupported -type %q", typ)
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

func formatResult(v interface{}) string {
	if v == nil {
		return "<absent>"
	}
	return fmt.Sprintf("%v", v)
}
