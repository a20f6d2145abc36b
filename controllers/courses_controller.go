package controllers

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"

	"skillforge/config"
	"skillforge/models"
	"skillforge/utils"
)

type CoursesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCoursesController(db *gorm.DB, cfg *config.Config) *CoursesController {
	return &CoursesController{DB: db, Cfg: cfg}
}

// GetCourses godoc
// @Summary List published courses
// @Description Returns the catalog with optional category, level and search filters
// @Tags courses
// @Produce json
// @Param category query int false "Category id"
// @Param level query string false "Course level"
// @Param search query string false "Search in title and description"
// @Param page query int false "Page number"
// @Success 200 {object} utils.PaginatedResponse
// @Router /courses [get]
func (cc *CoursesController) GetCourses(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 20)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := cc.DB.Model(&models.Course{}).Where("status = ?", models.CoursePublished)

	if category := c.QueryInt("category", 0); category > 0 {
		query = query.Where("category_id = ?", category)
	}
	if level := c.Query("level"); level != "" {
		query = query.Where("level = ?", level)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(tags) LIKE ?", like, like, like)
	}
	if c.QueryBool("featured", false) {
		query = query.Where("is_featured = ?", true)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return utils.InternalServerError(c, "Could not query courses")
	}

	var courses []models.Course
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&courses).Error; err != nil {
		return utils.InternalServerError(c, "Could not query courses")
	}

	return utils.Paginate(c, courses, total, page, pageSize)
}

// GetCourseDetails godoc
// @Summary Get course details by slug
// @Tags courses
// @Produce json
// @Param slug path string true "Course slug"
// @Success 200 {object} utils.SuccessResponse
// @Failure 404 {object} utils.ErrorResponse
// @Router /courses/{slug} [get]
func (cc *CoursesController) GetCourseDetails(c *fiber.Ctx) error {
	slug := c.Params("slug")

	var course models.Course
	if err := cc.DB.Preload("Modules", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Preload("Reviews").Where("slug = ?", slug).First(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Course not found")
		}
		return utils.InternalServerError(c, "Could not query course")
	}

	// Drafts are visible to their instructor only.
	if course.Status != models.CoursePublished {
		userID, err := currentUserID(c, cc.Cfg)
		if err != nil || !cc.canManage(userID, &course) {
			return utils.NotFound(c, "Course not found")
		}
	}

	modules := make([]fiber.Map, 0, len(course.Modules))
	for _, module := range course.Modules {
		modules = append(modules, fiber.Map{
			"id":              module.ID,
			"title":           module.Title,
			"description":     module.Description,
			"position":        module.Position,
			"is_free_preview": module.IsFreePreview,
			"contents":        cc.moduleContents(module.ID),
		})
	}

	var rating float64
	if len(course.Reviews) > 0 {
		sum := 0
		for _, review := range course.Reviews {
			sum += review.Rating
		}
		rating = float64(sum) / float64(len(course.Reviews))
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"course":       course,
		"modules":      modules,
		"rating":       rating,
		"review_count": len(course.Reviews),
	})
}

// moduleContents flattens the four content tables into one ordered list
// of type-tagged entries.
func (cc *CoursesController) moduleContents(moduleID uint) []fiber.Map {
	contents := []fiber.Map{}

	var texts []models.TextContent
	cc.DB.Where("module_id = ?", moduleID).Order("position ASC").Find(&texts)
	for _, item := range texts {
		contents = append(contents, fiber.Map{
			"id": item.ID, "type": models.ContentText,
			"title": item.Title, "position": item.Position,
			"reading_time_minutes": item.ReadingTimeMinutes,
		})
	}

	var videos []models.VideoContent
	cc.DB.Where("module_id = ?", moduleID).Order("position ASC").Find(&videos)
	for _, item := range videos {
		contents = append(contents, fiber.Map{
			"id": item.ID, "type": models.ContentVideo,
			"title": item.Title, "position": item.Position,
			"duration_seconds": item.DurationSeconds,
		})
	}

	var resources []models.ResourceContent
	cc.DB.Where("module_id = ?", moduleID).Order("position ASC").Find(&resources)
	for _, item := range resources {
		contents = append(contents, fiber.Map{
			"id": item.ID, "type": models.ContentResource,
			"title": item.Title, "position": item.Position,
			"file_type": item.FileType,
		})
	}

	var assignments []models.Assignment
	cc.DB.Where("module_id = ?", moduleID).Order("position ASC").Find(&assignments)
	for _, item := range assignments {
		contents = append(contents, fiber.Map{
			"id": item.ID, "type": models.ContentAssignment,
			"title": item.Title, "position": item.Position,
			"total_points": item.TotalPoints,
		})
	}

	return contents
}

func (cc *CoursesController) canManage(userID uint, course *models.Course) bool {
	if course.InstructorID == userID {
		return true
	}
	var user models.User
	if err := cc.DB.First(&user, userID).Error; err != nil {
		return false
	}
	return user.IsAdmin()
}

type CourseInput struct {
	Title                string  `json:"title" validate:"required,min=3"`
	Slug                 string  `json:"slug" validate:"required,min=3"`
	Overview             string  `json:"overview"`
	Description          string  `json:"description"`
	CategoryID           *uint   `json:"category_id"`
	Level                string  `json:"level" validate:"omitempty,oneof=beginner intermediate advanced expert"`
	Price                float64 `json:"price" validate:"gte=0"`
	DurationHours        int     `json:"duration_hours" validate:"gte=0"`
	Language             string  `json:"language"`
	Tags                 string  `json:"tags"`
	CertificateAvailable *bool   `json:"certificate_available"`
}

// CreateCourse godoc
// @Summary Create a course
// @Description Creates a draft course owned by the authenticated instructor
// @Tags courses
// @Accept json
// @Produce json
// @Param course body CourseInput true "Course data"
// @Success 201 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /instructor/courses [post]
func (cc *CoursesController) CreateCourse(c *fiber.Ctx) error {
	userID, err := currentUserID(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input CourseInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	course := models.Course{
		Title:         input.Title,
		Slug:          input.Slug,
		InstructorID:  userID,
		Overview:      input.Overview,
		Description:   input.Description,
		CategoryID:    input.CategoryID,
		Price:         input.Price,
		DurationHours: input.DurationHours,
		Tags:          input.Tags,
		Status:        models.CourseDraft,
	}
	if input.Level != "" {
		course.Level = input.Level
	}
	if input.Language != "" {
		course.Language = input.Language
	}
	if input.CertificateAvailable != nil {
		course.CertificateAvailable = *input.CertificateAvailable
	} else {
		course.CertificateAvailable = true
	}

	if err := cc.DB.Create(&course).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Error(c, fiber.StatusConflict, errors.New("slug already in use"))
		}
		return utils.InternalServerError(c, "Could not create course")
	}

	return utils.Success(c, fiber.StatusCreated, course)
}

// UpdateCourse godoc
// @Summary Update a course
// @Tags courses
// @Accept json
// @Produce json
// @Param id path int true "Course id"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /instructor/courses/{id} [put]
func (cc *CoursesController) UpdateCourse(c *fiber.Ctx) error {
	userID, err := currentUserID(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid course id")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}
	if !cc.canManage(userID, &course) {
		return utils.Forbidden(c, "Not your course")
	}

	type UpdateInput struct {
		Title       *string  `json:"title"`
		Overview    *string  `json:"overview"`
		Description *string  `json:"description"`
		Level       *string  `json:"level"`
		Price       *float64 `json:"price"`
		Tags        *string  `json:"tags"`
		Status      *string  `json:"status" validate:"omitempty,oneof=draft published archived"`
		IsFeatured  *bool    `json:"is_featured"`
	}

	var input UpdateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	if input.Title != nil {
		course.Title = *input.Title
	}
	if input.Overview != nil {
		course.Overview = *input.Overview
	}
	if input.Description != nil {
		course.Description = *input.Description
	}
	if input.Level != nil {
		course.Level = *input.Level
	}
	if input.Price != nil {
		course.Price = *input.Price
	}
	if input.Tags != nil {
		course.Tags = *input.Tags
	}
	if input.Status != nil {
		course.Status = *input.Status
	}
	if input.IsFeatured != nil {
		course.IsFeatured = *input.IsFeatured
	}

	if err := cc.DB.Save(&course).Error; err != nil {
		return utils.InternalServerError(c, "Could not update course")
	}

	return utils.Success(c, fiber.StatusOK, course)
}

// AddModule godoc
// @Summary Add a module to a course
// @Tags courses
// @Accept json
// @Produce json
// @Param id path int true "Course id"
// @Success 201 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /instructor/courses/{id}/modules [post]
func (cc *CoursesController) AddModule(c *fiber.Ctx) error {
	userID, err := currentUserID(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid course id")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}
	if !cc.canManage(userID, &course) {
		return utils.Forbidden(c, "Not your course")
	}

	type ModuleInput struct {
		Title         string `json:"title" validate:"required"`
		Description   string `json:"description"`
		Position      int    `json:"position"`
		IsFreePreview bool   `json:"is_free_preview"`
	}

	var input ModuleInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	module := models.CourseModule{
		CourseID:      course.ID,
		Title:         input.Title,
		Description:   input.Description,
		Position:      input.Position,
		IsFreePreview: input.IsFreePreview,
	}
	if err := cc.DB.Create(&module).Error; err != nil {
		return utils.InternalServerError(c, "Could not create module")
	}

	return utils.Success(c, fiber.StatusCreated, module)
}

// AddContent godoc
// @Summary Add a content item to a module
// @Description Creates a text, video, resource or assignment item depending on the type field
// @Tags courses
// @Accept json
// @Produce json
// @Param id path int true "Course id"
// @Param moduleId path int true "Module id"
// @Success 201 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /instructor/courses/{id}/modules/{moduleId}/contents [post]
func (cc *CoursesController) AddContent(c *fiber.Ctx) error {
	userID, err := currentUserID(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid course id")
	}
	moduleID, err := c.ParamsInt("moduleId")
	if err != nil {
		return utils.BadRequest(c, "Invalid module id")
	}

	var course models.Course
	if err := cc.DB.First(&course, courseID).Error; err != nil {
		return utils.NotFound(c, "Course not found")
	}
	if !cc.canManage(userID, &course) {
		return utils.Forbidden(c, "Not your course")
	}

	var module models.CourseModule
	if err := cc.DB.Where("id = ? AND course_id = ?", moduleID, course.ID).First(&module).Error; err != nil {
		return utils.NotFound(c, "Module not found")
	}

	type ContentInput struct {
		Type        string `json:"type" validate:"required,oneof=text video resource assignment"`
		Title       string `json:"title" validate:"required"`
		Description string `json:"description"`
		Position    int    `json:"position"`

		Body               string `json:"body"`
		ReadingTimeMinutes int    `json:"reading_time_minutes"`
		VideoURL           string `json:"video_url"`
		DurationSeconds    int    `json:"duration_seconds"`
		FileURL            string `json:"file_url"`
		FileType           string `json:"file_type"`
		Instructions       string `json:"instructions"`
		TotalPoints        int    `json:"total_points"`
	}

	var input ContentInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	var created interface{}
	switch input.Type {
	case models.ContentText:
		item := models.TextContent{Body: input.Body, ReadingTimeMinutes: input.ReadingTimeMinutes}
		item.ModuleID, item.Title, item.Description, item.Position = module.ID, input.Title, input.Description, input.Position
		if err := cc.DB.Create(&item).Error; err != nil {
			return utils.InternalServerError(c, "Could not create content")
		}
		created = item
	case models.ContentVideo:
		item := models.VideoContent{VideoURL: input.VideoURL, DurationSeconds: input.DurationSeconds}
		item.ModuleID, item.Title, item.Description, item.Position = module.ID, input.Title, input.Description, input.Position
		if err := cc.DB.Create(&item).Error; err != nil {
			return utils.InternalServerError(c, "Could not create content")
		}
		created = item
	case models.ContentResource:
		item := models.ResourceContent{FileURL: input.FileURL, FileType: input.FileType}
		item.ModuleID, item.Title, item.Description, item.Position = module.ID, input.Title, input.Description, input.Position
		if err := cc.DB.Create(&item).Error; err != nil {
			return utils.InternalServerError(c, "Could not create content")
		}
		created = item
	case models.ContentAssignment:
		item := models.Assignment{Instructions: input.Instructions, TotalPoints: input.TotalPoints}
		if item.TotalPoints == 0 {
			item.TotalPoints = 100
		}
		item.ModuleID, item.Title, item.Description, item.Position = module.ID, input.Title, input.Description, input.Position
		if err := cc.DB.Create(&item).Error; err != nil {
			return utils.InternalServerError(c, "Could not create content")
		}
		created = item
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"type":    input.Type,
		"content": created,
	})
}

// AddReview godoc
// @Summary Review a course
// @Description One review per user per course; repeated submissions update the existing review
// @Tags courses
// @Accept json
// @Produce json
// @Param id path int true "Course id"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /courses/{id}/reviews [post]
func (cc *CoursesController) AddReview(c *fiber.Ctx) error {
	userID, err := currentUserID(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid course id")
	}

	type ReviewInput struct {
		Rating  int    `json:"rating" validate:"required,min=1,max=5"`
		Comment string `json:"comment"`
	}

	var input ReviewInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if err := validate.Struct(&input); err != nil {
		return utils.ValidationFailed(c, validationDetails(err))
	}

	// Only enrolled users may review.
	var enrollment models.Enrollment
	if err := cc.DB.Where("user_id = ? AND course_id = ?", userID, courseID).First(&enrollment).Error; err != nil {
		return utils.Forbidden(c, "Enroll before reviewing")
	}

	review := models.Review{
		CourseID: uint(courseID),
		UserID:   userID,
		Rating:   input.Rating,
		Comment:  input.Comment,
	}
	if err := cc.DB.Create(&review).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			cc.DB.Model(&models.Review{}).
				Where("course_id = ? AND user_id = ?", courseID, userID).
				Updates(map[string]interface{}{"rating": input.Rating, "comment": input.Comment})
			cc.DB.Where("course_id = ? AND user_id = ?", courseID, userID).First(&review)
		} else {
			return utils.InternalServerError(c, "Could not save review")
		}
	}

	return utils.Success(c, fiber.StatusOK, review)
}

// GetReviews godoc
// @Summary List reviews for a course
// @Tags courses
// @Produce json
// @Param id path int true "Course id"
// @Success 200 {object} utils.SuccessResponse
// @Router /courses/{id}/reviews [get]
func (cc *CoursesController) GetReviews(c *fiber.Ctx) error {
	courseID, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid course id")
	}

	var reviews []models.Review
	if err := cc.DB.Where("course_id = ?", courseID).Order("created_at DESC").Find(&reviews).Error; err != nil {
		return utils.InternalServerError(c, "Could not query reviews")
	}

	return utils.Success(c, fiber.StatusOK, reviews)
}

// GetCategories godoc
// @Summary List course categories
// @Tags courses
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /categories [get]
func (cc *CoursesController) GetCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := cc.DB.Order("name ASC").Find(&categories).Error; err != nil {
		return utils.InternalServerError(c, "Could not query categories")
	}
	return utils.Success(c, fiber.StatusOK, categories)
}
