// Package tool defines Tool, a typed operation with a name and description.
// The service's auxiliary endpoints (prompt structure inspection, URL
// extraction) are built as tools so they can be invoked either with typed
// input (Run) or with a JSON payload (Call).
package tool
