// Package modelmap rewrites a request body's "model" field using a
// provider's ordered exact/wildcard mapping rules, selecting the
// vision-variant map when the request body carries image content.
package modelmap
