// Package checkout models a single payment attempt as a finite-state
// machine and stores in-flight checkout sessions.
//
//	idle ──Begin──▶ sdk-loading ──SDKReady──▶ sdk-ready ──Pay──▶ processing
//	                     │                                         │
//	                 SDKFailed                                 PayResult
//	                     ▼                                         ▼
//	                   error ◀──────────── failure ──────── redirected
//
// Confirm applies the gateway redirect to a processing or redirected
// session: approval ends in redirected, a decline in error.
//
// Retry leaves error for sdk-ready when the gateway SDK was initialized
// before the failure, otherwise for idle.
package checkout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/parisxmas/sangha/internal/models"
)

type State string

const (
	StateIdle       State = "idle"
	StateSDKLoading State = "sdk-loading"
	StateSDKReady   State = "sdk-ready"
	StateProcessing State = "processing"
	StateRedirected State = "redirected"
	StateError      State = "error"
)

// TransitionError is returned when an event is not allowed in the current
// state.
type TransitionError struct {
	From  State
	Event string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("checkout: %s not allowed in state %s", e.Event, e.From)
}

// ErrBillingIncomplete blocks Begin until a name and an email are present.
var ErrBillingIncomplete = errors.New("checkout: billing name and email are required")

// CardFieldsError lists the gateway card fields that were empty at Pay.
type CardFieldsError struct {
	Missing []string
}

func (e *CardFieldsError) Error() string {
	return "checkout: card fields incomplete: " + strings.Join(e.Missing, ", ")
}

// CardGate reports which gateway-rendered card inputs hold a value. The
// card data itself never leaves the gateway's fields.
type CardGate struct {
	Number     bool `json:"number"`
	Expiration bool `json:"expiration"`
	CVV        bool `json:"cvv"`
}

func (g CardGate) missing() []string {
	var m []string
	if !g.Number {
		m = append(m, "number")
	}
	if !g.Expiration {
		m = append(m, "expiration")
	}
	if !g.CVV {
		m = append(m, "cvv")
	}
	return m
}

// IsSuccessMessage is the gateway's pay-result contract: an empty message
// or "Success" means the payment went through.
func IsSuccessMessage(msg string) bool {
	return msg == "" || msg == "Success"
}

// Machine is the state of one checkout. The zero value is idle. Fields are
// exported so sessions can be serialized.
type Machine struct {
	State          State  `json:"state"`
	SDKInitialized bool   `json:"sdkInitialized"`
	Error          string `json:"error,omitempty"`
}

func (m *Machine) current() State {
	if m.State == "" {
		return StateIdle
	}
	return m.State
}

func (m *Machine) deny(event string) error {
	return &TransitionError{From: m.current(), Event: event}
}

// Begin starts SDK initialization once billing has a name and an email.
func (m *Machine) Begin(b models.BillingDetails) error {
	if s := m.current(); s != StateIdle && s != StateError {
		return m.deny("begin")
	}
	if b.FullName() == "" || strings.TrimSpace(b.Email) == "" {
		return ErrBillingIncomplete
	}
	m.State = StateSDKLoading
	m.SDKInitialized = false
	m.Error = ""
	return nil
}

// SDKReady records a successful gateway Init.
func (m *Machine) SDKReady() error {
	if m.current() != StateSDKLoading {
		return m.deny("sdk-ready")
	}
	m.State = StateSDKReady
	m.SDKInitialized = true
	return nil
}

// SDKFailed records a failed gateway Init with the SDK's message.
func (m *Machine) SDKFailed(msg string) error {
	if m.current() != StateSDKLoading {
		return m.deny("sdk-failed")
	}
	m.State = StateError
	m.Error = msg
	return nil
}

// CanPay reports whether the pay action is enabled.
func (m *Machine) CanPay() bool {
	return m.current() == StateSDKReady
}

// Pay submits the payment when every card field holds a value. An
// incomplete gate leaves the state unchanged.
func (m *Machine) Pay(g CardGate) error {
	if !m.CanPay() {
		return m.deny("pay")
	}
	if missing := g.missing(); len(missing) > 0 {
		return &CardFieldsError{Missing: missing}
	}
	m.State = StateProcessing
	m.Error = ""
	return nil
}

// PayResult applies the gateway's pay response and reports whether it was a
// success.
func (m *Machine) PayResult(msg string) (bool, error) {
	if m.current() != StateProcessing {
		return false, m.deny("pay-result")
	}
	if IsSuccessMessage(msg) {
		m.State = StateRedirected
		return true, nil
	}
	m.State = StateError
	m.Error = msg
	return false, nil
}

// Fail moves an in-flight step to error.
func (m *Machine) Fail(msg string) error {
	if s := m.current(); s != StateSDKLoading && s != StateProcessing {
		return m.deny("fail")
	}
	m.State = StateError
	m.Error = msg
	return nil
}

// Retry leaves the error state. The error message is kept until the next
// step replaces it.
func (m *Machine) Retry() error {
	if m.current() != StateError {
		return m.deny("retry")
	}
	if m.SDKInitialized {
		m.State = StateSDKReady
	} else {
		m.State = StateIdle
	}
	return nil
}

// Confirm applies the gateway's signed redirect. Only a payment that was
// submitted can be confirmed: processing or redirected. A decline also
// lands in an error state the browser already reached, leaving it as is.
func (m *Machine) Confirm(paid bool, msg string) error {
	switch s := m.current(); {
	case s == StateProcessing || s == StateRedirected:
	case s == StateError && !paid:
		return nil
	default:
		return m.deny("confirm")
	}
	if paid {
		m.State = StateRedirected
		m.Error = ""
		return nil
	}
	m.State = StateError
	m.Error = msg
	return nil
}
