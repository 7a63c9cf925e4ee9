// Package task holds the in-memory registry of users and tasks. Tasks refer to
// their owner by user ID only; owner names are resolved on demand when tasks
// are listed.
package task
