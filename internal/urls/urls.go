package urls

// DeveloperPortal is the Govee developer platform, which documents the
// cloud API and explains how to request an API key.
const DeveloperPortal = "https://developer.govee.com/"

// CloudAPI is the host of the Govee cloud API
const CloudAPI = "https://openapi.api.govee.com"
