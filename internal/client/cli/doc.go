// Package cli provides the interactive passkeeper command-line client.
//
// It wires configuration, the local store, the server connection and the
// passfile contexts into a REPL that keeps working offline. Typical flow:
// log in (online, or offline against cached credentials), edit passfiles,
// commit, then sync.
//
// Commands:
//   - register, login, logout
//   - list, new <pwd|txt> <name>, show <id>, addsection <id>
//   - rename <id> <name>, delete <id>, restore <id>
//   - commit, rollback
//   - sync, merge <id>
//
// Passphrases are read without echo when stdin is a terminal.
package cli
