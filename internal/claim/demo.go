package claim

// DemoClaim returns the fixed example claim run by the demo command and
// endpoint. The patient's claim_amount is within policy_limit.
func DemoClaim() Claim {
	return Claim{
		Doctor:  Inputs{"procedure_code": "12345", "doctor_id": "67890", "date": "20240101"},
		Patient: Inputs{"patient_id": "54321", "claim_amount": "1000", "policy_limit": "5000"},
	}
}
