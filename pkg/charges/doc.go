// Package charges records settled operations so that retried charges are not
// applied twice.
//
// A Record is written at most once per operation id and account, under an
// explicit TTL. A retry arriving within the TTL finds the record and replays
// its stored result; a retry arriving after the TTL is treated as new and may
// charge again. The TTL is therefore a required setting, sized to how long
// callers may keep retrying a job:
//
//	rec, err := charges.NewRecorder(store, 48*time.Hour)
//
//	if settled, err := rec.IsSettled(ctx, account, opID); err != nil {
//	    return err
//	} else if settled != nil {
//	    // replay settled.Result
//	}
//	// ... charge ...
//	_, _, err = rec.RecordSettlement(ctx, account, opID, cost, outcome)
//
// Recorders are scoped so independent components can keep separate markers
// for the same operation id (see Scoped).
package charges
