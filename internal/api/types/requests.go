package types

// DeadlineLayout is the accepted deadline format (RFC 3339).
const DeadlineLayout = "2006-01-02T15:04:05Z07:00"

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=8,hasupper,hasdigit,hasspecial"`
}

func (RegisterRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"Name":                "Name is required",
		"Email":               "Invalid email address",
		"Password.min":        "Password must be at least 8 characters",
		"Password.hasupper":   "Password must contain at least one uppercase letter",
		"Password.hasdigit":   "Password must contain at least one number",
		"Password.hasspecial": "Password must contain at least one special character",
	}
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (LoginRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"Email":    "Invalid email address",
		"Password": "Password is required",
	}
}

// JobPostCreateRequest is the body of POST /jobs. Status is accepted for
// compatibility but ignored: new posts are always open.
type JobPostCreateRequest struct {
	Title           string   `json:"title" validate:"required,notblank,max=200"`
	Description     string   `json:"description" validate:"required,notblank,max=2000"`
	FileFormat      string   `json:"file_format" validate:"required,fileformat"`
	Budget          *float64 `json:"budget" validate:"omitempty,gte=0,lte=9999999999.99"`
	Deadline        string   `json:"deadline" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	VideoAttachment []string `json:"video_attachment" validate:"omitempty,max=10,dive,required,url"`
	Status          string   `json:"status"`
}

func (JobPostCreateRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"Title.required":        "Title is required",
		"Title.notblank":        "Title is required",
		"Title.max":             "Title too long",
		"Description.required":  "Description is required",
		"Description.notblank":  "Description is required",
		"Description.max":       "Description too long",
		"FileFormat.required":   "File format is required",
		"FileFormat.fileformat": "File format must be one of PDF, DOCX, PPTX, XLSX, JPG, PNG, MP4, AVI, MOV, GIF",
		"Budget.lte":            "Budget too large",
		"Budget":                "Budget must be positive",
		"Deadline":              "Invalid deadline",
		"VideoAttachment.max":   "Maximum 10 video attachments allowed",
		"VideoAttachment":       "Invalid video attachment URL",
	}
}

type ApplyRequest struct {
	Message string `json:"message" validate:"max=5000"`
}

func (ApplyRequest) ValidationMessages() map[string]string {
	return map[string]string{"Message": "Message too long"}
}

type MessageCreateRequest struct {
	Content    string `json:"content" validate:"required"`
	ReceiverID string `json:"receiver_id" validate:"required"`
}

func (MessageCreateRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"Content":    "Message content is required",
		"ReceiverID": "Receiver ID is required",
	}
}

// ProfileUpdateRequest is a partial update; nil fields are left unchanged.
type ProfileUpdateRequest struct {
	Name           *string   `json:"name" validate:"omitempty,min=1"`
	Bio            *string   `json:"bio" validate:"omitempty,max=500"`
	ProfilePic     *string   `json:"profile_pic"`
	PortfolioURL   *string   `json:"portfolio_url" validate:"omitempty,url"`
	Skills         *[]string `json:"skills" validate:"omitempty,max=10"`
	ContactDisplay *bool     `json:"contact_display"`
}

func (ProfileUpdateRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"Name":         "Name is required",
		"Bio":          "Bio must be less than 500 characters",
		"PortfolioURL": "Invalid portfolio URL",
		"Skills":       "Maximum 10 skills allowed",
	}
}

type PaymentCreateRequest struct {
	JobPostID string  `json:"job_post_id" validate:"required"`
	Amount    float64 `json:"amount" validate:"gt=0,lte=9999999999.99"`
}

func (PaymentCreateRequest) ValidationMessages() map[string]string {
	return map[string]string{
		"JobPostID":  "Missing required fields",
		"Amount.lte": "Amount too large",
		"Amount":     "Missing required fields",
	}
}
