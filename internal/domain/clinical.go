package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/billingapi/internal/schema"
)

// Clinic represents a practice location that issues billings.
type Clinic struct {
	Record
	Code     *string `json:"Code"`
	Name     *string `json:"Name"`
	Address  *string `json:"Address"`
	Phone    *string `json:"Phone"`
	Email    *string `json:"Email"`
	IsActive *bool   `json:"IsActive"`
}

// Referral represents a patient referral issued by a clinic.
type Referral struct {
	Record
	Code            *string    `json:"Code"`
	ClinicId        *uuid.UUID `json:"ClinicId"`
	ClinicId_Clinic *Clinic    `json:"ClinicId_Clinic,omitempty"`
	PatientName     *string    `json:"PatientName"`
	ReferredTo      *string    `json:"ReferredTo"`
	Reason          *string    `json:"Reason"`
	ReferralDate    *time.Time `json:"ReferralDate"`
	Urgent          *bool      `json:"Urgent"`
}

// LabResult represents a single laboratory measurement.
type LabResult struct {
	Record
	Code           *string    `json:"Code"`
	PatientName    *string    `json:"PatientName"`
	TestName       *string    `json:"TestName"`
	ResultValue    *float64   `json:"ResultValue"`
	Unit           *string    `json:"Unit"`
	ReferenceRange *string    `json:"ReferenceRange"`
	CollectedOn    *time.Time `json:"CollectedOn"`
	Abnormal       *bool      `json:"Abnormal"`
}

// VitalSigns represents one set of observations taken at a visit.
type VitalSigns struct {
	Record
	Code             *string    `json:"Code"`
	PatientName      *string    `json:"PatientName"`
	RecordedOn       *time.Time `json:"RecordedOn"`
	Temperature      *float64   `json:"Temperature"`
	HeartRate        *int64     `json:"HeartRate"`
	RespiratoryRate  *int64     `json:"RespiratoryRate"`
	BloodPressure    *string    `json:"BloodPressure"`
	OxygenSaturation *float64   `json:"OxygenSaturation"`
}

var ClinicSchema = declare("Clinic", func(e *Clinic) *Record { return &e.Record },
	schema.Text("Code", func(e *Clinic) **string { return &e.Code }),
	schema.Text("Name", func(e *Clinic) **string { return &e.Name }),
	schema.Text("Address", func(e *Clinic) **string { return &e.Address }),
	schema.Text("Phone", func(e *Clinic) **string { return &e.Phone }),
	schema.Text("Email", func(e *Clinic) **string { return &e.Email }),
	schema.Boolean("IsActive", func(e *Clinic) **bool { return &e.IsActive }),
)

var ReferralSchema = declare("Referral", func(e *Referral) *Record { return &e.Record },
	schema.Text("Code", func(e *Referral) **string { return &e.Code }),
	schema.UUID("ClinicId", func(e *Referral) **uuid.UUID { return &e.ClinicId }),
	schema.Relation("ClinicId_Clinic", "Clinic", "ClinicId", func(e *Referral) **Clinic { return &e.ClinicId_Clinic }),
	schema.Text("PatientName", func(e *Referral) **string { return &e.PatientName }),
	schema.Text("ReferredTo", func(e *Referral) **string { return &e.ReferredTo }),
	schema.Text("Reason", func(e *Referral) **string { return &e.Reason }, schema.NotSortable()),
	schema.DateTime("ReferralDate", func(e *Referral) **time.Time { return &e.ReferralDate }),
	schema.Boolean("Urgent", func(e *Referral) **bool { return &e.Urgent }),
)

var LabResultSchema = declare("LabResult", func(e *LabResult) *Record { return &e.Record },
	schema.Text("Code", func(e *LabResult) **string { return &e.Code }),
	schema.Text("PatientName", func(e *LabResult) **string { return &e.PatientName }),
	schema.Text("TestName", func(e *LabResult) **string { return &e.TestName }),
	schema.Float("ResultValue", func(e *LabResult) **float64 { return &e.ResultValue }),
	schema.Text("Unit", func(e *LabResult) **string { return &e.Unit }, schema.NotSearchable()),
	schema.Text("ReferenceRange", func(e *LabResult) **string { return &e.ReferenceRange }, schema.NotSearchable(), schema.NotSortable()),
	schema.DateTime("CollectedOn", func(e *LabResult) **time.Time { return &e.CollectedOn }),
	schema.Boolean("Abnormal", func(e *LabResult) **bool { return &e.Abnormal }),
)

var VitalSignsSchema = declare("VitalSigns", func(e *VitalSigns) *Record { return &e.Record },
	schema.Text("Code", func(e *VitalSigns) **string { return &e.Code }),
	schema.Text("PatientName", func(e *VitalSigns) **string { return &e.PatientName }),
	schema.DateTime("RecordedOn", func(e *VitalSigns) **time.Time { return &e.RecordedOn }),
	schema.Float("Temperature", func(e *VitalSigns) **float64 { return &e.Temperature }),
	schema.Integer("HeartRate", func(e *VitalSigns) **int64 { return &e.HeartRate }),
	schema.Integer("RespiratoryRate", func(e *VitalSigns) **int64 { return &e.RespiratoryRate }),
	schema.Text("BloodPressure", func(e *VitalSigns) **string { return &e.BloodPressure }, schema.NotSearchable()),
	schema.Float("OxygenSaturation", func(e *VitalSigns) **float64 { return &e.OxygenSaturation }),
)
