// Package cache persists the most recently fetched batch of emails.
//
// A batch is always written wholesale and read back wholesale. FileStore keeps
// it in a single JSON file; RedisStore keeps it in a single Redis key so
// several replicas can share it. Neither implementation locks: the last
// writer wins.
package cache
