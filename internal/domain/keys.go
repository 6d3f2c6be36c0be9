package domain

// KeyPrefix is the namespace prefix for all zapline keys in the store.
const KeyPrefix = "zapline:"
