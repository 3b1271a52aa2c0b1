package sqlassets

import _ "embed"

//go:embed schema/master/tenants.sql
var TenantsSQL string

//go:embed schema/tenant/time_entries.sql
var TimeEntriesSQL string
