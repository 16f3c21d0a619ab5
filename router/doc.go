// Package router dispatches RPC requests to business handlers.
//
// Every request is a JSON envelope
//
//	{"host":"lightapi.net","service":"petstore","action":"addPet","version":"0.1.0","data":{...}}
//
// whose service id, host/service/action/version, selects both the handler
// and the schema the data member is validated against before the handler
// runs.
package router
