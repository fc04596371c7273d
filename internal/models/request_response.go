package models

import (
	"github.com/shopspring/decimal"
)

// Request models
type AuthTokenRequest struct {
	Password string `json:"password" binding:"required"`
}

type ExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	Notes       string          `json:"notes"`
	Timestamp   string          `json:"timestamp"`
	// ReporterRegistrationID identifies the device that submitted the
	// expense so that the notification fan-out can skip it.
	ReporterRegistrationID string `json:"reporterRegistrationId"`
}

type RegisterMobileRequest struct {
	RegistrationID string `json:"registrationId" binding:"required"`
	Mobile         string `json:"mobile"`
}

// Response models
type AuthTokenResponse struct {
	AuthToken string `json:"auth_token"`
}

type ExpenseResponse struct {
	Status      string      `json:"status"`
	Transaction Transaction `json:"transaction"`
}

type ExpensesResponse struct {
	Status       string        `json:"status"`
	Transactions []Transaction `json:"transactions"`
}

// AccountBalance is one entry of a balance query result.
type AccountBalance struct {
	Account string          `json:"account"`
	Balance decimal.Decimal `json:"balance"`
}

type BalancesResponse struct {
	Status   string           `json:"status"`
	Balances []AccountBalance `json:"balances"`
}

type MobilesResponse struct {
	Status  string   `json:"status"`
	Mobiles []Mobile `json:"mobiles"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
