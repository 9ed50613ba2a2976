// Lookout - Radio Target Continuity Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lookout

// Package validation wraps go-playground/validator v10 with a process-wide
// validator instance shared by configuration loading, inbound position
// messages and HTTP query parameters.
//
// Besides the built-in tags, three domain tags are registered:
//
//	trackingclass  a supported target class (A, B, ATON, BASE, SAR, AIRCRAFT)
//	targetstatus   unconfirmed, confirmed, lost or remove
//	trackingkey    a non-blank tracking key
//
// Field names in error messages are taken from json, koanf or query tags.
//
//	type targetFilter struct {
//	    Status string `query:"status" validate:"targetstatus"`
//	    Class  string `query:"class" validate:"trackingclass"`
//	}
//
//	if verr := validation.ValidateStruct(&f); verr != nil {
//	    apiErr := verr.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	}
package validation
