// Package cloud provides a client for the Govee developer API.
//
// The cloud path controls the same lights as the Bluetooth link when they
// are out of radio range. Commands are the protocol package's Command values,
// mapped to API capabilities by CapabilityFor. Scenes are the one exception:
// the API selects them by name from a per-device scene list, which the client
// fetches and caches.
//
// # Requests
//
// Every request carries the API key in the Govee-API-Key header and a fresh
// 32 digit hex request id. Responses report success with a body code of 200
// even when the HTTP status is also 200, so both are checked.
//
// # Errors and Retries
//
// Failures are returned as *APIError with a Type describing the category.
// Network errors, server errors and rate limiting are retried with
// exponential backoff. A Retry-After header on a 429 response extends the
// delay. Authentication and validation errors are returned immediately.
//
// A client-side token bucket keeps request bursts under the API quota.
//
// # Usage Example
//
//	client := cloud.NewClient(os.Getenv(cloud.APIKeyEnvVar))
//
//	devices, err := client.ListDevices(ctx)
//	if err != nil {
//	    fmt.Println(cloud.GetShortErrorMessage(err))
//	    fmt.Println(cloud.GetTroubleshootingHint(err))
//	    return err
//	}
//
//	d := devices[0]
//	err = client.Execute(ctx, d.SKU, d.Device, protocol.Brightness{Level: 128})
package cloud
