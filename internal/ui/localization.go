package ui

import (
	"strings"

	"fyne.io/fyne/v2/lang"
)

// Language codes
const (
	LangSystem  = "system"
	LangEnglish = "en"
	LangRussian = "ru"
	LangPortug  = "pt"
)

// Localization manages UI text translations
type Localization struct {
	currentLanguage string
	texts           map[string]map[string]string
}

// Text keys for localization
const (
	KeyAppTitle          = "app_title"
	KeyFetch             = "fetch"
	KeyDownload          = "download"
	KeySettings          = "settings"
	KeyFile              = "file"
	KeyLanguage          = "language"
	KeyServerURL         = "server_url"
	KeyDownloadDirectory = "download_directory"
	KeyMaxParallel       = "max_parallel"
	KeyPollInterval      = "poll_interval"
	KeyAutoReveal        = "auto_reveal"
	KeyCompress          = "compress"
	KeySave              = "save"
	KeyCancel            = "cancel"
	KeyBrowse            = "browse"
	KeyEnterURL          = "enter_url"
	KeySettingsSaved     = "settings_saved"
	KeyFetchingInfo      = "fetching_info"
	KeyFormats           = "formats"
	KeyResolution        = "resolution"
	KeyFormat            = "format"
	KeyFPS               = "fps"
	KeySize              = "size"
	KeyUploader          = "uploader"
	KeyDuration          = "duration"
	KeySpeed             = "speed"
	KeyETA               = "eta"
	KeyRetrievedFiles    = "retrieved_files"
	KeyReveal            = "reveal"
	KeyOpen              = "open"
	KeyCopyPath          = "copy_path"
	KeyStop              = "stop"
	KeyRemove            = "remove"
	KeyDownloadCompleted = "download_completed"
	KeyErrorOpeningFile  = "error_opening_file"
	KeyPathCopied        = "path_copied"
	KeyFileNotReady      = "file_not_ready"
	KeyCompressionDone   = "compression_done"
	KeyInvalidSettings   = "invalid_settings"
)

// NewLocalization creates a new localization manager
func NewLocalization() *Localization {
	l := &Localization{
		currentLanguage: LangEnglish,
		texts:           make(map[string]map[string]string),
	}

	l.initializeTexts()
	return l
}

// SetLanguage sets the current language. "system" follows the OS locale and
// falls back to English when it is not translated.
func (l *Localization) SetLanguage(code string) {
	if code == LangSystem {
		code = systemLanguage()
	}

	if _, exists := l.texts[code]; exists {
		l.currentLanguage = code
		return
	}
	l.currentLanguage = LangEnglish
}

func systemLanguage() string {
	tag := lang.SystemLocale().LanguageString()
	base, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(base)
}

// GetText returns localized text for the given key
func (l *Localization) GetText(key string) string {
	if texts, exists := l.texts[l.currentLanguage]; exists {
		if text, found := texts[key]; found {
			return text
		}
	}

	if text, found := l.texts[LangEnglish][key]; found {
		return text
	}

	return key
}

// GetCurrentLanguage returns the current language code
func (l *Localization) GetCurrentLanguage() string {
	return l.currentLanguage
}

// GetAvailableLanguages returns map of available languages with their display names
func (l *Localization) GetAvailableLanguages() map[string]string {
	return map[string]string{
		LangEnglish: "English",
		LangRussian: "Русский",
		LangPortug:  "Português",
	}
}

func (l *Localization) initializeTexts() {
	l.texts[LangEnglish] = map[string]string{
		KeyAppTitle:          "YT Web Client",
		KeyFetch:             "Get Info",
		KeyDownload:          "Download",
		KeySettings:          "Settings",
		KeyFile:              "File",
		KeyLanguage:          "Language",
		KeyServerURL:         "Server URL",
		KeyDownloadDirectory: "Download Directory",
		KeyMaxParallel:       "Max Parallel Downloads",
		KeyPollInterval:      "Status Poll Interval (ms)",
		KeyAutoReveal:        "Reveal file when done",
		KeyCompress:          "Compress videos after download",
		KeySave:              "Save",
		KeyCancel:            "Cancel",
		KeyBrowse:            "Browse",
		KeyEnterURL:          "Enter YouTube URL (https://youtube.com/watch?v=...)",
		KeySettingsSaved:     "Settings saved successfully!",
		KeyFetchingInfo:      "Fetching video information...",
		KeyFormats:           "Available formats",
		KeyResolution:        "Resolution",
		KeyFormat:            "Format",
		KeyFPS:               "FPS",
		KeySize:              "Size",
		KeyUploader:          "Uploader",
		KeyDuration:          "Duration",
		KeySpeed:             "Speed",
		KeyETA:               "ETA",
		KeyRetrievedFiles:    "Downloaded files",
		KeyReveal:            "Reveal",
		KeyOpen:              "Open",
		KeyCopyPath:          "Copy path",
		KeyStop:              "Stop",
		KeyRemove:            "Remove",
		KeyDownloadCompleted: "Download completed",
		KeyErrorOpeningFile:  "Error opening file",
		KeyPathCopied:        "Path copied to clipboard",
		KeyFileNotReady:      "File is not saved yet",
		KeyCompressionDone:   "Compression finished",
		KeyInvalidSettings:   "Invalid settings",
	}

	l.texts[LangRussian] = map[string]string{
		KeyAppTitle:          "YT Веб-клиент",
		KeyFetch:             "Получить",
		KeyDownload:          "Скачать",
		KeySettings:          "Настройки",
		KeyFile:              "Файл",
		KeyLanguage:          "Язык",
		KeyServerURL:         "Адрес сервера",
		KeyDownloadDirectory: "Папка загрузки",
		KeyMaxParallel:       "Макс. параллельных",
		KeyPollInterval:      "Интервал опроса (мс)",
		KeyAutoReveal:        "Показать файл по завершении",
		KeyCompress:          "Сжимать видео после загрузки",
		KeySave:              "Сохранить",
		KeyCancel:            "Отмена",
		KeyBrowse:            "Обзор",
		KeyEnterURL:          "Введите URL YouTube (https://youtube.com/watch?v=...)",
		KeySettingsSaved:     "Настройки успешно сохранены!",
		KeyFetchingInfo:      "Получение информации о видео...",
		KeyFormats:           "Доступные форматы",
		KeyResolution:        "Разрешение",
		KeyFormat:            "Формат",
		KeyFPS:               "Кадр/с",
		KeySize:              "Размер",
		KeyUploader:          "Автор",
		KeyDuration:          "Длительность",
		KeySpeed:             "Скорость",
		KeyETA:               "Осталось",
		KeyRetrievedFiles:    "Загруженные файлы",
		KeyReveal:            "Показать",
		KeyOpen:              "Открыть",
		KeyCopyPath:          "Копировать путь",
		KeyStop:              "Стоп",
		KeyRemove:            "Удалить",
		KeyDownloadCompleted: "Загрузка завершена",
		KeyErrorOpeningFile:  "Ошибка открытия файла",
		KeyPathCopied:        "Путь скопирован",
		KeyFileNotReady:      "Файл ещё не сохранён",
		KeyCompressionDone:   "Сжатие завершено",
		KeyInvalidSettings:   "Неверные настройки",
	}

	l.texts[LangPortug] = map[string]string{
		KeyAppTitle:          "YT Web Client",
		KeyFetch:             "Obter",
		KeyDownload:          "Baixar",
		KeySettings:          "Configurações",
		KeyFile:              "Arquivo",
		KeyLanguage:          "Idioma",
		KeyServerURL:         "URL do Servidor",
		KeyDownloadDirectory: "Diretório de Download",
		KeyMaxParallel:       "Max Downloads Paralelos",
		KeyPollInterval:      "Intervalo de Consulta (ms)",
		KeyAutoReveal:        "Mostrar arquivo ao concluir",
		KeyCompress:          "Comprimir vídeos após o download",
		KeySave:              "Salvar",
		KeyCancel:            "Cancelar",
		KeyBrowse:            "Navegar",
		KeyEnterURL:          "Digite URL do YouTube (https://youtube.com/watch?v=...)",
		KeySettingsSaved:     "Configurações salvas com sucesso!",
		KeyFetchingInfo:      "Obtendo informações do vídeo...",
		KeyFormats:           "Formatos disponíveis",
		KeyResolution:        "Resolução",
		KeyFormat:            "Formato",
		KeyFPS:               "FPS",
		KeySize:              "Tamanho",
		KeyUploader:          "Autor",
		KeyDuration:          "Duração",
		KeySpeed:             "Velocidade",
		KeyETA:               "Restante",
		KeyRetrievedFiles:    "Arquivos baixados",
		KeyReveal:            "Mostrar",
		KeyOpen:              "Abrir",
		KeyCopyPath:          "Copiar caminho",
		KeyStop:              "Parar",
		KeyRemove:            "Remover",
		KeyDownloadCompleted: "Download concluído",
		KeyErrorOpeningFile:  "Erro ao abrir arquivo",
		KeyPathCopied:        "Caminho copiado",
		KeyFileNotReady:      "Arquivo ainda não salvo",
		KeyCompressionDone:   "Compressão concluída",
		KeyInvalidSettings:   "Configurações inválidas",
	}
}
