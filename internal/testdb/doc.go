// Package testdb provides helpers for tests that need a PostgreSQL database.
//
// Tests call Open, which skips the test when no database URL is configured,
// and WithTx to run statements in a transaction that is always rolled back:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.Open(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        // statements here are discarded when fn returns
//	    })
//	}
package testdb
