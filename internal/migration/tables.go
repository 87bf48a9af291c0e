package migration

type kind int

const (
	kindInt kind = iota
	kindText
	kindBool
	kindTime
	kindJSON
)

type column struct {
	name     string
	kind     kind
	required bool
	// deferred columns reference rows copied later and are applied with an
	// UPDATE once every table is in place.
	deferred bool
}

type table struct {
	name    string
	columns []column
	// legacy reads the table from a source that keeps pickup details on
	// the package row and has no pickup_events table.
	legacy *legacyRead
}

// legacyRead maps target columns onto a differently shaped source table.
type legacyRead struct {
	from    string
	columns map[string]string
	where   string
}

// legacyPickedUp selects the package rows that stand for a pickup event.
const legacyPickedUp = `status = 'picked_up' AND picked_up_at IS NOT NULL AND pickup_person_name IS NOT NULL`

// readPlan is where a target table's rows come from in the source. exprs
// holds one source column per entry in columns, and the first is the id.
type readPlan struct {
	from    string
	columns []column
	exprs   []string
	where   string
}

// tables lists the copy order. Each table only references tables before it,
// apart from deferred columns.
var tables = []table{
	{name: "mailboxes", columns: []column{
		{name: "id", kind: kindInt, required: true},
		{name: "mailbox_number", kind: kindText, required: true},
		{name: "default_tenant_id", kind: kindInt, deferred: true},
		{name: "is_active", kind: kindBool},
		{name: "notes", kind: kindText},
		{name: "created_at", kind: kindTime},
		{name: "updated_at", kind: kindTime},
	}},
	{name: "tenants", columns: []column{
		{name: "id", kind: kindInt, required: true},
		{name: "mailbox_id", kind: kindInt, required: true},
		{name: "name", kind: kindText, required: true},
		{name: "phone", kind: kindText},
		{name: "email", kind: kindText},
		{name: "contact_info", kind: kindJSON},
		{name: "is_active", kind: kindBool},
		{name: "created_at", kind: kindTime},
		{name: "updated_at", kind: kindTime},
	}},
	{name: "packages", columns: []column{
		{name: "id", kind: kindInt, required: true},
		{name: "mailbox_id", kind: kindInt, required: true},
		{name: "tenant_id", kind: kindInt},
		{name: "tracking_number", kind: kindText, required: true},
		{name: "status", kind: kindText},
		{name: "high_value", kind: kindBool},
		{name: "carrier", kind: kindText},
		{name: "size_category", kind: kindText},
		{name: "notes", kind: kindText},
		{name: "received_at", kind: kindTime},
		{name: "picked_up_at", kind: kindTime},
		{name: "updated_at", kind: kindTime},
	}},
	{name: "pickup_events", columns: []column{
		{name: "id", kind: kindInt, required: true},
		{name: "package_id", kind: kindInt, required: true},
		{name: "tenant_id", kind: kindInt},
		{name: "pickup_person_name", kind: kindText, required: true},
		{name: "staff_initials", kind: kindText},
		{name: "notes", kind: kindText},
		{name: "signature_captured", kind: kindBool},
		{name: "picked_up_at", kind: kindTime},
	}, legacy: &legacyRead{
		// The event takes the package id, which is also what legacy
		// signatures are keyed by.
		from: "packages",
		columns: map[string]string{
			"id":                 "id",
			"package_id":         "id",
			"tenant_id":          "tenant_id",
			"pickup_person_name": "pickup_person_name",
			"staff_initials":     "staff_initials",
			"notes":              "pickup_notes",
			"signature_captured": "signature_captured",
			"picked_up_at":       "picked_up_at",
		},
		where: legacyPickedUp,
	}},
	{name: "signatures", columns: []column{
		{name: "id", kind: kindInt, required: true},
		{name: "pickup_event_id", kind: kindInt, required: true},
		{name: "signature_data", kind: kindText, required: true},
		{name: "created_at", kind: kindTime},
	}, legacy: &legacyRead{
		from: "signatures",
		columns: map[string]string{
			"id":              "id",
			"pickup_event_id": "package_id",
			"signature_data":  "signature_data",
			"created_at":      "created_at",
		},
		where: `package_id IN (SELECT id FROM packages WHERE ` + legacyPickedUp + `)`,
	}},
}

// project keeps the table's columns present in the source, in table order.
// missing lists required columns the source lacks.
func (t table) project(sourceColumns []string) (present []column, missing []string) {
	have := make(map[string]bool, len(sourceColumns))
	for _, name := range sourceColumns {
		have[name] = true
	}
	for _, col := range t.columns {
		switch {
		case have[col.name]:
			present = append(present, col)
		case col.required:
			missing = append(missing, col.name)
		}
	}
	return present, missing
}

// direct reads the projected columns from the source table of the same name.
func (t table) direct(cols []column) readPlan {
	exprs := make([]string, len(cols))
	for i, c := range cols {
		exprs[i] = c.name
	}
	return readPlan{from: t.name, columns: cols, exprs: exprs}
}

// projectLegacy is project for the legacy layout. sourceColumns are the
// columns of t.legacy.from.
func (t table) projectLegacy(sourceColumns []string) (readPlan, []string) {
	have := make(map[string]bool, len(sourceColumns))
	for _, name := range sourceColumns {
		have[name] = true
	}
	plan := readPlan{from: t.legacy.from, where: t.legacy.where}
	var missing []string
	for _, col := range t.columns {
		src, ok := t.legacy.columns[col.name]
		switch {
		case ok && have[src]:
			plan.columns = append(plan.columns, col)
			plan.exprs = append(plan.exprs, src)
		case col.required:
			missing = append(missing, col.name)
		}
	}
	return plan, missing
}
