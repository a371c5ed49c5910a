package service

import (
	"fmt"
	"strings"

	"github.com/partnerhub/internal/constants"
)

// CommissionTransition 一次合法的佣金状态迁移
type CommissionTransition struct {
	Event string
	From  string
	To    string
	// MarkCancelledAfterPaid 已付款佣金的发票被取消：状态保持 paid，只打标记
	MarkCancelledAfterPaid bool
}

// commissionTransitionTable 状态 -> 事件 -> 目标状态
var commissionTransitionTable = map[string]map[string]string{
	constants.CommissionStatusPending: {
		constants.CommissionEventLock:   constants.CommissionStatusLocked,
		constants.CommissionEventCancel: constants.CommissionStatusCancelled,
	},
	constants.CommissionStatusLocked: {
		constants.CommissionEventPay:    constants.CommissionStatusPaid,
		constants.CommissionEventCancel: constants.CommissionStatusCancelled,
	},
	constants.CommissionStatusPaid: {
		constants.CommissionEventCancel: constants.CommissionStatusPaid,
	},
}

// ResolveCommissionTransition 校验并返回佣金状态迁移，非法迁移返回 ErrInvalidTransition
func ResolveCommissionTransition(status string, cancelledAfterPaid bool, event string) (CommissionTransition, error) {
	current := strings.TrimSpace(status)
	evt := strings.TrimSpace(event)
	transition := CommissionTransition{Event: evt, From: current}

	targets, ok := commissionTransitionTable[current]
	if !ok {
		return transition, fmt.Errorf("%w: %s from %q", ErrInvalidTransition, evt, current)
	}
	next, ok := targets[evt]
	if !ok {
		return transition, fmt.Errorf("%w: %s from %q", ErrInvalidTransition, evt, current)
	}
	if current == constants.CommissionStatusPaid && evt == constants.CommissionEventCancel {
		if cancelledAfterPaid {
			return transition, fmt.Errorf("%w: invoice already cancelled after payout", ErrInvalidTransition)
		}
		transition.MarkCancelledAfterPaid = true
	}
	transition.To = next
	return transition, nil
}

// commissionEventSources 可以接受某个事件的源状态
func commissionEventSources(event string) []string {
	sources := make([]string, 0, 2)
	for _, status := range []string{
		constants.CommissionStatusPending,
		constants.CommissionStatusLocked,
		constants.CommissionStatusPaid,
	} {
		if _, ok := commissionTransitionTable[status][event]; ok {
			sources = append(sources, status)
		}
	}
	return sources
}

// isQualifyingStatus 是否计入等级资格
func isQualifyingStatus(status string) bool {
	return status == constants.CommissionStatusLocked || status == constants.CommissionStatusPaid
}

// IsTerminalCommissionStatus 是否为终态
func IsTerminalCommissionStatus(status string) bool {
	return strings.TrimSpace(status) == constants.CommissionStatusCancelled
}
