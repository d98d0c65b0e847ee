package clob

import (
	"strings"

	"github.com/vmbbz/betmirror-sub005/pkg/clob/cloberrors"
	"github.com/vmbbz/betmirror-sub005/pkg/clob/clobtypes"
)

func classify(err error) error {
	return cloberrors.Classify(err)
}

// classifyResponse maps an errorMsg from a 200-status placement response to
// a typed outcome string. The exchange reports some policy rejections inline
// rather than via HTTP status.
func classifyResponse(resp *clobtypes.OrderResponse) string {
	if resp == nil {
		return clobtypes.OutcomeFailed
	}
	if resp.Success && resp.ErrorMsg == "" {
		return ""
	}
	msg := strings.ToLower(resp.ErrorMsg)
	switch {
	case strings.Contains(msg, "not enough balance") || strings.Contains(msg, "insufficient"):
		return clobtypes.OutcomeInsufficientFunds
	case strings.Contains(msg, "min") && strings.Contains(msg, "size"):
		return clobtypes.OutcomeSkippedMinSize
	case strings.Contains(msg, "liquidity") || strings.Contains(msg, "no match"):
		return clobtypes.OutcomeSkippedNoLiquidity
	default:
		return clobtypes.OutcomeFailed
	}
}
