/*
Package storage provides envelope persistence for the timer engine.

The persisted document is a single JSON envelope per storage id holding
every session's timers, UI-adjacent state, and global preferences. The
envelope is the only unit of atomic persistence: partial writes are not
possible. Every mutation reads the full envelope, patches one session,
and writes the full envelope back.

Two implementations exist:

  - BoltStore: BoltDB-backed, one bucket, one key per storage id, the
    whole envelope as a single JSON value written in one transaction.
  - MemStore: in-memory with identical serialization semantics; the
    fallback when no persistence backend is available, and the default
    in tests.

Failure policy: a missing or unparseable envelope never fails a read.
Corrupt payloads are logged, counted, and replaced with an empty
envelope so timer operation continues.
*/
package storage
