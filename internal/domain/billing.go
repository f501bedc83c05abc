package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/schema"
)

// Billing represents an invoice raised by a clinic for a billing cycle.
type Billing struct {
	Record
	Code                        *string       `json:"Code"`
	ClinicId                    *uuid.UUID    `json:"ClinicId"`
	ClinicId_Clinic             *Clinic       `json:"ClinicId_Clinic,omitempty"`
	BillingCycleId              *uuid.UUID    `json:"BillingCycleId"`
	BillingCycleId_BillingCycle *BillingCycle `json:"BillingCycleId_BillingCycle,omitempty"`
	InvoiceNumber               *string       `json:"InvoiceNumber"`
	InvoiceDate                 *time.Time    `json:"InvoiceDate"`
	DueDate                     *time.Time    `json:"DueDate"`
	TotalAmount                 *int64        `json:"TotalAmount"`
	Status                      *string       `json:"Status"`
}

// Payment represents a payment received against a billing.
type Payment struct {
	Record
	Code              *string    `json:"Code"`
	BillingId         *uuid.UUID `json:"BillingId"`
	BillingId_Billing *Billing   `json:"BillingId_Billing,omitempty"`
	Amount            *int64     `json:"Amount"`
	PaymentDate       *time.Time `json:"PaymentDate"`
	PaymentMethod     *string    `json:"PaymentMethod"`
	ReferenceNumber   *string    `json:"ReferenceNumber"`
}

// BillingCycle represents a closed or open invoicing period.
type BillingCycle struct {
	Record
	Code      *string    `json:"Code"`
	Name      *string    `json:"Name"`
	StartDate *time.Time `json:"StartDate"`
	EndDate   *time.Time `json:"EndDate"`
	IsClosed  *bool      `json:"IsClosed"`
}

// BillableItem represents a priced service or product.
type BillableItem struct {
	Record
	Code        *string  `json:"Code"`
	Name        *string  `json:"Name"`
	Description *string  `json:"Description"`
	UnitPrice   *float64 `json:"UnitPrice"`
	Taxable     *bool    `json:"Taxable"`
}

// AgingReport summarises outstanding balances by age bucket.
type AgingReport struct {
	Record
	Code            *string    `json:"Code"`
	ClinicId        *uuid.UUID `json:"ClinicId"`
	ClinicId_Clinic *Clinic    `json:"ClinicId_Clinic,omitempty"`
	ReportDate      *time.Time `json:"ReportDate"`
	Current         *int64     `json:"Current"`
	Days30          *int64     `json:"Days30"`
	Days60          *int64     `json:"Days60"`
	Days90          *int64     `json:"Days90"`
	Over90          *int64     `json:"Over90"`
}

var BillingSchema = declare("Billing", func(e *Billing) *Record { return &e.Record },
	schema.Text("Code", func(e *Billing) **string { return &e.Code }),
	schema.UUID("ClinicId", func(e *Billing) **uuid.UUID { return &e.ClinicId }),
	schema.Relation("ClinicId_Clinic", "Clinic", "ClinicId", func(e *Billing) **Clinic { return &e.ClinicId_Clinic }),
	schema.UUID("BillingCycleId", func(e *Billing) **uuid.UUID { return &e.BillingCycleId }),
	schema.Relation("BillingCycleId_BillingCycle", "BillingCycle", "BillingCycleId", func(e *Billing) **BillingCycle { return &e.BillingCycleId_BillingCycle }),
	schema.Text("InvoiceNumber", func(e *Billing) **string { return &e.InvoiceNumber }),
	schema.DateTime("InvoiceDate", func(e *Billing) **time.Time { return &e.InvoiceDate }),
	schema.DateTime("DueDate", func(e *Billing) **time.Time { return &e.DueDate }),
	schema.Integer("TotalAmount", func(e *Billing) **int64 { return &e.TotalAmount }),
	schema.Text("Status", func(e *Billing) **string { return &e.Status }),
)

var PaymentSchema = declare("Payment", func(e *Payment) *Record { return &e.Record },
	schema.Text("Code", func(e *Payment) **string { return &e.Code }),
	schema.UUID("BillingId", func(e *Payment) **uuid.UUID { return &e.BillingId }),
	schema.Relation("BillingId_Billing", "Billing", "BillingId", func(e *Payment) **Billing { return &e.BillingId_Billing }),
	schema.Integer("Amount", func(e *Payment) **int64 { return &e.Amount }),
	schema.DateTime("PaymentDate", func(e *Payment) **time.Time { return &e.PaymentDate }),
	schema.Text("PaymentMethod", func(e *Payment) **string { return &e.PaymentMethod }),
	schema.Text("ReferenceNumber", func(e *Payment) **string { return &e.ReferenceNumber }),
)

var BillingCycleSchema = declare("BillingCycle", func(e *BillingCycle) *Record { return &e.Record },
	schema.Text("Code", func(e *BillingCycle) **string { return &e.Code }),
	schema.Text("Name", func(e *BillingCycle) **string { return &e.Name }),
	schema.DateTime("StartDate", func(e *BillingCycle) **time.Time { return &e.StartDate }),
	schema.DateTime("EndDate", func(e *BillingCycle) **time.Time { return &e.EndDate }),
	schema.Boolean("IsClosed", func(e *BillingCycle) **bool { return &e.IsClosed }),
)

var BillableItemSchema = declare("BillableItem", func(e *BillableItem) *Record { return &e.Record },
	schema.Text("Code", func(e *BillableItem) **string { return &e.Code }),
	schema.Text("Name", func(e *BillableItem) **string { return &e.Name }),
	schema.Text("Description", func(e *BillableItem) **string { return &e.Description }, schema.NotSortable()),
	schema.Float("UnitPrice", func(e *BillableItem) **float64 { return &e.UnitPrice }),
	schema.Boolean("Taxable", func(e *BillableItem) **bool { return &e.Taxable }),
)

var AgingReportSchema = declare("AgingReport", func(e *AgingReport) *Record { return &e.Record },
	schema.Text("Code", func(e *AgingReport) **string { return &e.Code }),
	schema.UUID("ClinicId", func(e *AgingReport) **uuid.UUID { return &e.ClinicId }),
	schema.Relation("ClinicId_Clinic", "Clinic", "ClinicId", func(e *AgingReport) **Clinic { return &e.ClinicId_Clinic }),
	schema.DateTime("ReportDate", func(e *AgingReport) **time.Time { return &e.ReportDate }),
	schema.Integer("Current", func(e *AgingReport) **int64 { return &e.Current }),
	schema.Integer("Days30", func(e *AgingReport) **int64 { return &e.Days30 }),
	schema.Integer("Days60", func(e *AgingReport) **int64 { return &e.Days60 }),
	schema.Integer("Days90", func(e *AgingReport) **int64 { return &e.Days90 }),
	schema.Integer("Over90", func(e *AgingReport) **int64 { return &e.Over90 }),
)
