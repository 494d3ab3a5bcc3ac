package obs

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxStatementAttr = 300

// PGXTracer opens a client span around every pool query. Statements are
// recorded without their arguments.
type PGXTracer struct{}

var _ pgx.QueryTracer = PGXTracer{}

func (PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	verb := statementVerb(data.SQL)
	ctx, _ = otel.Tracer("spark-configurator/pgx").Start(ctx, "db "+strings.ToLower(verb),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", verb),
			attribute.String("db.statement", clipStatement(data.SQL)),
			attribute.Int("db.arg_count", len(data.Args)),
		),
	)
	return ctx
}

func (PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	span := trace.SpanFromContext(ctx)
	defer span.End()
	if data.Err != nil {
		span.RecordError(data.Err)
		span.SetStatus(codes.Error, data.Err.Error())
	} else {
		span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	}
}

// statementVerb returns the leading keyword; CTEs report as WITH.
func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "QUERY"
	}
	return strings.ToUpper(strings.TrimRight(fields[0], "("))
}

func clipStatement(sql string) string {
	sql = strings.Join(strings.Fields(sql), " ")
	if len(sql) > maxStatementAttr {
		return sql[:maxStatementAttr] + "..."
	}
	return sql
}
