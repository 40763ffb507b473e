package domain

// KeyPrefix namespaces every key receiptdex writes to the shared KV store.
const KeyPrefix = "receiptdex:"
