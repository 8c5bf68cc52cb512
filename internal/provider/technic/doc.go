// Package technic queries the Technic Platform API and solder endpoints.
//
// Modpacks are addressed by slug, one per request. Solder packs need a
// second request against the solder URL published by the platform.
package technic
