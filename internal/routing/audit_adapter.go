package routing

import (
	"context"

	"choiceview-connect/internal/audit"

	"github.com/aws/aws-lambda-go/lambdacontext"
)

// AuditAdapter bridges the router's invocation hook to the shared audit.Service.
//
// This keeps routing free of persistence concerns.

type AuditAdapter struct {
	Audit *audit.Service
}

func (a AuditAdapter) RecordInvocation(ctx context.Context, inv Invocation) error {
	if a.Audit == nil {
		return nil
	}
	e := audit.Event{
		RequestName: inv.RequestName,
		Outcome:     inv.Outcome,
		ContactID:   inv.ContactID,
		IPAddress:   ClientIPFromContext(ctx),
		DurationMS:  inv.Duration.Milliseconds(),
	}
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		e.AWSRequestID = lc.AwsRequestID
	}
	if inv.Result != nil {
		e.LambdaResult = inv.Result.LambdaResult()
		e.FailureReason = inv.Result.FailureReason()
		e.StatusCode = inv.Result.StatusCode()
	}
	if inv.Err != nil {
		e.FailureReason = inv.Err.Error()
	}
	return a.Audit.Append(ctx, e)
}
