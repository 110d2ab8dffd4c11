// Package harness runs claim scenarios against a scripted relay.
//
// A scenario wires the real orchestrator, registrar, relay client, poller
// and store to a FakeRelay and a FakeClock, runs one doctor + patient
// claim and checks the outcome and the relay traffic it produced.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: patient_aggregated
//	description: "Receipt is saved for the patient proof"
//	chain_id: 11155111
//	relay:
//	  register_vk:
//	    - body: { vkHash: "0xvk" }
//	  submit_proof:
//	    - body: { optimisticVerify: success, jobId: job-1 }
//	  job_status:
//	    - status: 503
//	    - body: { status: Aggregated, aggregationId: 7, merkleRoot: "0xroot" }
//	expect:
//	  outcome: success
//	assertions:
//	  - type: call_count
//	    op: submit-proof
//	    count: 2
//	  - type: receipt
//	    role: patient
//	    expect: { proofHash: "0xpatient" }
//
// Replies for an endpoint are consumed in order and the last one repeats.
// A step with repeat: n is scripted n times. A reply without a status is
// a 200.
//
// # Assertion Types
//
//   - call_count: the relay saw exactly count requests for op (all ops when empty)
//   - call_order: ops appear in the relay trace in this relative order
//   - sleeps: the poller slept exactly these durations, in order
//   - receipt: the stored receipt for role matches expect (absent: true for none)
//   - runs: the recorded phase outcomes, as "role:outcome", in order
//   - prove_input: the prover saw field = value in role's inputs
//
// # Deterministic Testing
//
// The clock never blocks and the claim id is fixed, so the relay trace of
// a scenario is stable and can be compared with RunWithGolden.
package harness
