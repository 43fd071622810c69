package engine

// billedUnitSeconds is the length of one billed minute.
const billedUnitSeconds int64 = 60

// billedMinutes rounds a session duration up to whole billed minutes.
// A session that starts and ends in the same instant is still billed for
// one minute. endAt earlier than startAt is a hard error.
func billedMinutes(startAt, endAt int64) (int64, error) {
	if endAt < startAt {
		return 0, ErrEndBeforeStart
	}
	mins := (endAt - startAt + billedUnitSeconds - 1) / billedUnitSeconds
	if mins < 1 {
		mins = 1
	}
	return mins, nil
}

// splitDeposit computes the fee and the refund for a settled session.
// The fee is capped at the deposit: the holder can never owe more than
// was escrowed, so no receivable is ever tracked.
func splitDeposit(deposit, ratePerMinute, minutes int64) (fee, refund int64) {
	fee = minutes * ratePerMinute
	if fee >= deposit {
		return deposit, 0
	}
	return fee, deposit - fee
}
