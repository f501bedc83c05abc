package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/schema"
)

// Claim represents an insurance claim submitted for a patient visit.
type Claim struct {
	Record
	Code        *string    `json:"Code"`
	ClaimNumber *string    `json:"ClaimNumber"`
	PatientName *string    `json:"PatientName"`
	ServiceDate *time.Time `json:"ServiceDate"`
	SubmittedOn *time.Time `json:"SubmittedOn"`
	TotalCharge *int64     `json:"TotalCharge"`
	Status      *string    `json:"Status"`
}

// ClaimItem represents one billed line of a claim.
type ClaimItem struct {
	Record
	Code                        *string       `json:"Code"`
	ClaimId                     *uuid.UUID    `json:"ClaimId"`
	ClaimId_Claim               *Claim        `json:"ClaimId_Claim,omitempty"`
	BillableItemId              *uuid.UUID    `json:"BillableItemId"`
	BillableItemId_BillableItem *BillableItem `json:"BillableItemId_BillableItem,omitempty"`
	Quantity                    *int64        `json:"Quantity"`
	UnitCharge                  *float64      `json:"UnitCharge"`
	Description                 *string       `json:"Description"`
}

// ExplanationOfBenefits represents the payer's adjudication of a claim.
type ExplanationOfBenefits struct {
	Record
	Code                  *string    `json:"Code"`
	ClaimId               *uuid.UUID `json:"ClaimId"`
	ClaimId_Claim         *Claim     `json:"ClaimId_Claim,omitempty"`
	ReceivedOn            *time.Time `json:"ReceivedOn"`
	AllowedAmount         *int64     `json:"AllowedAmount"`
	PaidAmount            *int64     `json:"PaidAmount"`
	PatientResponsibility *int64     `json:"PatientResponsibility"`
	Remarks               *string    `json:"Remarks"`
}

// RemittanceAdvice represents a payer's remittance against a payment.
type RemittanceAdvice struct {
	Record
	Code              *string    `json:"Code"`
	PaymentId         *uuid.UUID `json:"PaymentId"`
	PaymentId_Payment *Payment   `json:"PaymentId_Payment,omitempty"`
	RemittanceDate    *time.Time `json:"RemittanceDate"`
	Payer             *string    `json:"Payer"`
	TotalPaid         *int64     `json:"TotalPaid"`
	Reference         *string    `json:"Reference"`
}

// DenialReason records why a claim was denied.
type DenialReason struct {
	Record
	Code          *string    `json:"Code"`
	ClaimId       *uuid.UUID `json:"ClaimId"`
	ClaimId_Claim *Claim     `json:"ClaimId_Claim,omitempty"`
	ReasonCode    *string    `json:"ReasonCode"`
	Description   *string    `json:"Description"`
	DeniedOn      *time.Time `json:"DeniedOn"`
	Appealable    *bool      `json:"Appealable"`
}

// Preauthorization represents payer approval obtained before a procedure.
type Preauthorization struct {
	Record
	Code                *string    `json:"Code"`
	AuthorizationNumber *string    `json:"AuthorizationNumber"`
	PatientName         *string    `json:"PatientName"`
	Procedure           *string    `json:"Procedure"`
	RequestedOn         *time.Time `json:"RequestedOn"`
	ApprovedOn          *time.Time `json:"ApprovedOn"`
	ExpiresOn           *time.Time `json:"ExpiresOn"`
	Status              *string    `json:"Status"`
}

var ClaimSchema = declare("Claim", func(e *Claim) *Record { return &e.Record },
	schema.Text("Code", func(e *Claim) **string { return &e.Code }),
	schema.Text("ClaimNumber", func(e *Claim) **string { return &e.ClaimNumber }),
	schema.Text("PatientName", func(e *Claim) **string { return &e.PatientName }),
	schema.DateTime("ServiceDate", func(e *Claim) **time.Time { return &e.ServiceDate }),
	schema.DateTime("SubmittedOn", func(e *Claim) **time.Time { return &e.SubmittedOn }),
	schema.Integer("TotalCharge", func(e *Claim) **int64 { return &e.TotalCharge }),
	schema.Text("Status", func(e *Claim) **string { return &e.Status }),
)

var ClaimItemSchema = declare("ClaimItem", func(e *ClaimItem) *Record { return &e.Record },
	schema.Text("Code", func(e *ClaimItem) **string { return &e.Code }),
	schema.UUID("ClaimId", func(e *ClaimItem) **uuid.UUID { return &e.ClaimId }),
	schema.Relation("ClaimId_Claim", "Claim", "ClaimId", func(e *ClaimItem) **Claim { return &e.ClaimId_Claim }),
	schema.UUID("BillableItemId", func(e *ClaimItem) **uuid.UUID { return &e.BillableItemId }),
	schema.Relation("BillableItemId_BillableItem", "BillableItem", "BillableItemId", func(e *ClaimItem) **BillableItem { return &e.BillableItemId_BillableItem }),
	schema.Integer("Quantity", func(e *ClaimItem) **int64 { return &e.Quantity }),
	schema.Float("UnitCharge", func(e *ClaimItem) **float64 { return &e.UnitCharge }),
	schema.Text("Description", func(e *ClaimItem) **string { return &e.Description }, schema.NotSortable()),
)

var ExplanationOfBenefitsSchema = declare("ExplanationOfBenefits", func(e *ExplanationOfBenefits) *Record { return &e.Record },
	schema.Text("Code", func(e *ExplanationOfBenefits) **string { return &e.Code }),
	schema.UUID("ClaimId", func(e *ExplanationOfBenefits) **uuid.UUID { return &e.ClaimId }),
	schema.Relation("ClaimId_Claim", "Claim", "ClaimId", func(e *ExplanationOfBenefits) **Claim { return &e.ClaimId_Claim }),
	schema.DateTime("ReceivedOn", func(e *ExplanationOfBenefits) **time.Time { return &e.ReceivedOn }),
	schema.Integer("AllowedAmount", func(e *ExplanationOfBenefits) **int64 { return &e.AllowedAmount }),
	schema.Integer("PaidAmount", func(e *ExplanationOfBenefits) **int64 { return &e.PaidAmount }),
	schema.Integer("PatientResponsibility", func(e *ExplanationOfBenefits) **int64 { return &e.PatientResponsibility }),
	schema.Text("Remarks", func(e *ExplanationOfBenefits) **string { return &e.Remarks }, schema.NotSortable()),
)

var RemittanceAdviceSchema = declare("RemittanceAdvice", func(e *RemittanceAdvice) *Record { return &e.Record },
	schema.Text("Code", func(e *RemittanceAdvice) **string { return &e.Code }),
	schema.UUID("PaymentId", func(e *RemittanceAdvice) **uuid.UUID { return &e.PaymentId }),
	schema.Relation("PaymentId_Payment", "Payment", "PaymentId", func(e *RemittanceAdvice) **Payment { return &e.PaymentId_Payment }),
	schema.DateTime("RemittanceDate", func(e *RemittanceAdvice) **time.Time { return &e.RemittanceDate }),
	schema.Text("Payer", func(e *RemittanceAdvice) **string { return &e.Payer }),
	schema.Integer("TotalPaid", func(e *RemittanceAdvice) **int64 { return &e.TotalPaid }),
	schema.Text("Reference", func(e *RemittanceAdvice) **string { return &e.Reference }),
)

var DenialReasonSchema = declare("DenialReason", func(e *DenialReason) *Record { return &e.Record },
	schema.Text("Code", func(e *DenialReason) **string { return &e.Code }),
	schema.UUID("ClaimId", func(e *DenialReason) **uuid.UUID { return &e.ClaimId }),
	schema.Relation("ClaimId_Claim", "Claim", "ClaimId", func(e *DenialReason) **Claim { return &e.ClaimId_Claim }),
	schema.Text("ReasonCode", func(e *DenialReason) **string { return &e.ReasonCode }),
	schema.Text("Description", func(e *DenialReason) **string { return &e.Description }, schema.NotSortable()),
	schema.DateTime("DeniedOn", func(e *DenialReason) **time.Time { return &e.DeniedOn }),
	schema.Boolean("Appealable", func(e *DenialReason) **bool { return &e.Appealable }),
)

var PreauthorizationSchema = declare("Preauthorization", func(e *Preauthorization) *Record { return &e.Record },
	schema.Text("Code", func(e *Preauthorization) **string { return &e.Code }),
	schema.Text("AuthorizationNumber", func(e *Preauthorization) **string { return &e.AuthorizationNumber }),
	schema.Text("PatientName", func(e *Preauthorization) **string { return &e.PatientName }),
	schema.Text("Procedure", func(e *Preauthorization) **string { return &e.Procedure }),
	schema.DateTime("RequestedOn", func(e *Preauthorization) **time.Time { return &e.RequestedOn }),
	schema.DateTime("ApprovedOn", func(e *Preauthorization) **time.Time { return &e.ApprovedOn }),
	schema.DateTime("ExpiresOn", func(e *Preauthorization) **time.Time { return &e.ExpiresOn }),
	schema.Text("Status", func(e *Preauthorization) **string { return &e.Status }),
)
