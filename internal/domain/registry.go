package domain

import "github.com/rpattn/billingapi/internal/schema"

// Descriptors lists every entity type served by the API, in route order.
func Descriptors() []*schema.Descriptor {
	return []*schema.Descriptor{
		AgingReportSchema,
		BillableItemSchema,
		BillingSchema,
		BillingCycleSchema,
		ClaimSchema,
		ClaimItemSchema,
		ClinicSchema,
		DenialReasonSchema,
		ExplanationOfBenefitsSchema,
		LabResultSchema,
		PaymentSchema,
		PreauthorizationSchema,
		ReferralSchema,
		RemittanceAdviceSchema,
		VitalSignsSchema,
	}
}

// NewRegistry validates and registers every entity type.
func NewRegistry() (*schema.Registry, error) {
	return schema.NewRegistry(Descriptors()...)
}
