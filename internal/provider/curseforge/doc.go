// Package curseforge queries the CurseForge core API.
//
// The catalog answers many project ids in one round trip, so update checks
// for every CurseForge instance share a single batch request.
package curseforge
