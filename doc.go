// Package auth implements a user account service: the UserAccount aggregate,
// its command handlers, JWT issuance and an HTTP controller.
//
// Account lifecycle:
//   - A UserAccount is Active, Locked or Deleted. The transition table lives in
//     state_machine.go, Deleted is terminal and accounts are never removed.
//   - Locked and Deleted accounts reject every mutator except Unlock and
//     Delete. Lock and Delete revoke the refresh token.
//
// Domain events:
//   - Every successful mutation buffers a DomainEvent on the aggregate. The
//     unit of work drains the buffer and writes each event as an outbox
//     message in the same transaction as the state change.
//   - The outbox package sweeps unprocessed messages and hands them to a
//     Publisher (log, Kafka or RabbitMQ).
//
// Commands:
//   - Command handlers run inside a UnitOfWork and retry on optimistic
//     concurrency conflicts. AdministrationPolicy adds the checks that need
//     more than one aggregate, such as keeping the last administrator.
//
// Activity sinks:
//   - ActivitySink is a best effort audit emitter. Errors are logged and never
//     fail a command.
package auth
