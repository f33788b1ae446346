// Package services holds the cross-cutting plumbing shared by every pipeline
// stage: sentinel error markers with classification helpers and context
// annotation for run/stage correlation.
package services
