package models

// Schema lists every table the service migrates, parents before children.
func Schema() []interface{} {
	return []interface{}{
		&Company{},
		&Location{},
		&Place{},
		&Event{},
		&Activity{},
		&ActivityPlace{},
		&AssignmentRequest{},
		&Notification{},
		&AuditLog{},
	}
}
