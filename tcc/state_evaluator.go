package tcc

// Aggregate derives a transaction's aggregate TxStatus from its
// per-participant TryStatus entries, restricted to the participant IDs
// in registeredIDs (participants that have since been deregistered from
// this TxManager instance, if that ever happens, are ignored).
//
// Dominance rule (normative, see SPEC_FULL.md §9.1): Failure dominates
// Hanging, and both dominate Successful. A single failed participant
// forces the whole transaction to Cancel even while other participants
// are still Hanging — this is what lets the Monitor drive a transaction
// to a terminal state instead of leaving Try reservations orphaned
// forever.
func Aggregate(tx *Transaction, registeredIDs []string) TxStatus {
	sawHanging := false

	for _, id := range registeredIDs {
		entry, ok := tx.ParticipantStatuses[id]
		if !ok {
			continue
		}
		switch entry.TryStatus {
		case TryFailure:
			return TxFailure
		case TryHanging:
			sawHanging = true
		}
	}

	if sawHanging {
		return TxHanging
	}
	return TxSuccessful
}
