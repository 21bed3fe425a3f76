package dto

type SelectWorkspaceRequest struct {
	CompanyID string `json:"company_id"`
}

type SelectWorkspaceResponse struct {
	Ok        bool   `json:"ok"`
	CompanyID string `json:"company_id"`
}

type CurrentWorkspaceResponse struct {
	CompanyID *string `json:"company_id"`
}

type WorkspaceCompany struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type WorkspaceListResponse struct {
	Companies []WorkspaceCompany `json:"companies"`
}

type CreateCompanyRequest struct {
	Name string `json:"name" binding:"required"`
}
