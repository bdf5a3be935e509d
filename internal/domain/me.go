package domain

// Me who-am-I 接口的响应体
type Me struct {
	ID       string   `json:"id"`
	AuthID   string   `json:"auth_id"`
	Email    string   `json:"email"`
	Name     *string  `json:"name,omitempty"`
	FullName *string  `json:"full_name,omitempty"`
	Nombre   *string  `json:"nombre,omitempty"`
	RoleID   *string  `json:"role_id,omitempty"`
	Roles    []string `json:"roles"`
}

func (m Me) DisplayName() string {
	return User{Name: m.Name, FullName: m.FullName, Nombre: m.Nombre, Email: m.Email}.DisplayName()
}

// NewMe 由档案和角色名组装
func NewMe(u *User, authID string, roles []string) Me {
	if roles == nil {
		roles = []string{}
	}
	return Me{
		ID:       u.ID,
		AuthID:   authID,
		Email:    u.Email,
		Name:     u.Name,
		FullName: u.FullName,
		Nombre:   u.Nombre,
		RoleID:   u.RoleID,
		Roles:    roles,
	}
}
