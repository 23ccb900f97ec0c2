// Package utils holds small helpers shared by the cache, the store and the CLI:
// extended duration parsing ("90d"), duration formatting, site date parsing and
// email normalization.
package utils
