package domain

import "clinic-manager/internal/store"

// Schema 启动时声明的表能力，再交给 store.DetectSchema 校验
func Schema() store.Schema {
	return store.Schema{
		TablePatients:  {SoftDelete: true, Timestamps: true},
		TableExams:     {SoftDelete: true, Timestamps: true},
		TableUsers:     {SoftDelete: true, Timestamps: true},
		TableUserRoles: {SoftDelete: true, Timestamps: true},
		TableRoles:     {Timestamps: true},
	}
}
