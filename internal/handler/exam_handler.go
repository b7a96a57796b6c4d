package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/examsim-api/internal/handler/dto"
	apperrors "github.com/yourusername/examsim-api/internal/pkg/errors"
	"github.com/yourusername/examsim-api/internal/service"
)

// ExamHandler обрабатывает запросы сборки и проверки экзаменов
type ExamHandler struct {
	examService *service.ExamService
}

// NewExamHandler создает новый обработчик экзаменов
func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

// BuildExam собирает экзамен
// POST /api/exams
func (h *ExamHandler) BuildExam(c *gin.Context) {
	var req dto.BuildExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exam, err := h.examService.BuildExam(c.Request.Context(), req.ToService())
	if err != nil {
		handleServiceError(c, "ExamHandler", err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewExamResponse(exam))
}

// BuildSimulation собирает полный экзамен по разделам из конфигурации.
// Тело запроса необязательно.
// POST /api/exams/simulation
func (h *ExamHandler) BuildSimulation(c *gin.Context) {
	var req dto.SimulationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	exam, err := h.examService.BuildSimulation(c.Request.Context(), req.Seed)
	if err != nil {
		handleServiceError(c, "ExamHandler", err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewExamResponse(exam))
}

// GetExam возвращает ранее собранный экзамен
// GET /api/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	exam, err := h.examService.GetExam(c.Request.Context(), c.MustGet("examID").(string))
	if err != nil {
		handleServiceError(c, "ExamHandler", err)
		return
	}

	c.JSON(http.StatusOK, dto.NewExamResponse(exam))
}

// GradeExam проверяет ответы на экзамен
// POST /api/exams/:id/grade
func (h *ExamHandler) GradeExam(c *gin.Context) {
	var req dto.GradeExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.examService.GradeExam(c.Request.Context(), c.MustGet("examID").(string), req.Answers)
	if err != nil {
		handleServiceError(c, "ExamHandler", err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ExportExam экспортирует экзамен для печати в CSV или Excel.
// key=true добавляет колонку с правильным ответом и пояснение.
// GET /api/exams/:id/export?format=csv|xlsx&key=true
func (h *ExamHandler) ExportExam(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	withKey, _ := strconv.ParseBool(c.DefaultQuery("key", "false"))

	exam, err := h.examService.GetExam(c.Request.Context(), c.MustGet("examID").(string))
	if err != nil {
		handleServiceError(c, "ExamHandler", err)
		return
	}

	filename := fmt.Sprintf("exam_%s_%s", exam.ID, time.Now().Format("2006-01-02"))
	headers, rows := examRows(exam, withKey)

	switch format {
	case "xlsx":
		h.exportXLSX(c, headers, rows, filename)
	default:
		h.exportCSV(c, headers, rows, filename)
	}
}

// optionLetters - буквы вариантов в печатной версии
const optionLetters = "ABCDEFGH"

func optionLetter(i int) string {
	if i >= 0 && i < len(optionLetters) {
		return optionLetters[i : i+1]
	}
	return strconv.Itoa(i + 1)
}

// examRows раскладывает экзамен в строки таблицы. Количество колонок вариантов
// равно максимальному числу вариантов среди вопросов.
func examRows(exam *service.Exam, withKey bool) ([]string, [][]string) {
	maxOptions := 0
	for _, item := range exam.Items {
		if n := item.OptionsCount(); n > maxOptions {
			maxOptions = n
		}
	}

	headers := []string{"№", "Модуль", "Категория", "Сложность", "Вопрос"}
	for i := 0; i < maxOptions; i++ {
		headers = append(headers, "Вариант "+optionLetter(i))
	}
	if withKey {
		headers = append(headers, "Ответ", "Пояснение")
	}

	rows := make([][]string, 0, len(exam.Items))
	for i, item := range exam.Items {
		prompt := item.Prompt
		if item.Passage != "" {
			prompt = strings.TrimSpace(item.Passage) + "\n\n" + prompt
		}
		row := []string{
			strconv.Itoa(i + 1),
			sanitizeForExcel(item.Module),
			sanitizeForExcel(item.Category),
			string(item.Difficulty),
			sanitizeForExcel(prompt),
		}
		for j := 0; j < maxOptions; j++ {
			opt := ""
			if j < len(item.Options) {
				opt = sanitizeForExcel(item.Options[j])
			}
			row = append(row, opt)
		}
		if withKey {
			row = append(row, optionLetter(item.AnswerIndex), sanitizeForExcel(item.Explanation))
		}
		rows = append(rows, row)
	}
	return headers, rows
}

// exportCSV экспортирует строки в CSV с правильным экранированием спецсимволов
func (h *ExamHandler) exportCSV(c *gin.Context, headers []string, rows [][]string, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(headers)
	for _, row := range rows {
		writer.Write(row)
	}
}

// exportXLSX экспортирует строки в Excel с использованием StreamWriter
func (h *ExamHandler) exportXLSX(c *gin.Context, headers []string, rows [][]string, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Экзамен"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[ExamHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel file"})
		return
	}

	if err := sw.SetRow("A1", toCells(headers)); err != nil {
		log.Printf("[ExamHandler] Ошибка записи заголовков: %v", err)
	}
	for i, row := range rows {
		rowNum := i + 2
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), toCells(row)); err != nil {
			log.Printf("[ExamHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[ExamHandler] Ошибка при Flush: %v", err)
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[ExamHandler] Ошибка записи Excel в response: %v", err)
	}
}

func toCells(row []string) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
	}
	return cells
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}

// handleServiceError обрабатывает ошибки от сервисов и отправляет соответствующий HTTP ответ
func handleServiceError(c *gin.Context, component string, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrValidation) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrExhausted) {
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	} else {
		log.Printf("ERROR: Internal server error in %s: %v", component, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
