package repository

import (
	"errors"
	"testing"

	"vendomat/internal/usecase/interfaces"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func cancellation(codes ...string) *types.TransactionCanceledException {
	reasons := make([]types.CancellationReason, 0, len(codes))
	for _, c := range codes {
		reasons = append(reasons, types.CancellationReason{Code: aws.String(c)})
	}
	return &types.TransactionCanceledException{CancellationReasons: reasons}
}

func TestClassifyClaimCancellation(t *testing.T) {
	t.Run("order write lost the version race", func(t *testing.T) {
		err := classifyClaimCancellation(cancellation("ConditionalCheckFailed", "None"))
		if !errors.Is(err, interfaces.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("code already active on the machine", func(t *testing.T) {
		err := classifyClaimCancellation(cancellation("None", "ConditionalCheckFailed"))
		if !errors.Is(err, interfaces.ErrPickupCodeTaken) {
			t.Fatalf("expected ErrPickupCodeTaken, got %v", err)
		}
	})

	t.Run("store hiccup passes through", func(t *testing.T) {
		tce := cancellation("TransactionConflict", "None")
		err := classifyClaimCancellation(tce)
		if errors.Is(err, interfaces.ErrVersionConflict) || errors.Is(err, interfaces.ErrPickupCodeTaken) {
			t.Fatalf("transient cancellation must not map to a sentinel, got %v", err)
		}
	})
}

func TestClassifyReleaseCancellation(t *testing.T) {
	t.Run("lost version race", func(t *testing.T) {
		err := classifyReleaseCancellation(cancellation("ConditionalCheckFailed", "None"))
		if !errors.Is(err, interfaces.ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("throttling passes through", func(t *testing.T) {
		tce := cancellation("ThrottlingError", "None")
		err := classifyReleaseCancellation(tce)
		if errors.Is(err, interfaces.ErrVersionConflict) {
			t.Fatalf("throttling must not look like a lost race, got %v", err)
		}
		var got *types.TransactionCanceledException
		if !errors.As(err, &got) {
			t.Fatalf("expected the original cancellation to surface, got %v", err)
		}
	})
}
