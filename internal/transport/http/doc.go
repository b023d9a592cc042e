// Package http implements the HTTP handlers of the usage analysis service.
// Handlers only parse requests and render responses; loading reports and
// running the engine belong to the services package.
//
// Routes, as mounted by the app package:
//
//	POST /api/v1/analysis                 multipart upload, returns the AnalysisReport
//	POST /api/v1/analysis/export?format=  same input, returns a csv or xlsx download
//	GET  /api/v1/library                  latest analysis of the report library
//	POST /api/v1/library/refresh          rescans the library
//	GET  /api/health, /api/health/ready, /api/health/live, /api/version
//
// Successful JSON responses use the envelope {"status":"success","data":...}.
// Failures are rendered by the errors package as RFC 7807 problem documents.
//
// An analysis upload carries one or more "files" parts plus optional form
// fields: "metric" (unique or total), "cost_basis" (auto or actual),
// repeatable "titles" for the trend view, "usage_min"/"usage_max" bounding
// the distribution, and "cost[<file name>]" giving the package cost of a
// report.
package http
