package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Tutor Booking API",
        "description": "Booking eligibility, pricing and checkout for tutoring lessons",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    },
    "tags": [
        {
            "name": "Authentication",
            "description": "Access tokens"
        },
        {
            "name": "Teachers",
            "description": "Rate cards and availability"
        },
        {
            "name": "Bookings",
            "description": "Quotes, checkout and booking creation"
        }
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Authenticate user",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/LoginRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid payload",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Invalid credentials",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": [
                    "Authentication"
                ],
                "summary": "Current session",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "401": {
                        "description": "Unauthorized",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/teachers/{id}/availability": {
            "get": {
                "tags": [
                    "Teachers"
                ],
                "summary": "Teacher availability",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "date",
                        "in": "query",
                        "required": false,
                        "type": "string",
                        "format": "date"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid date",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/teachers/{id}/rate-card": {
            "get": {
                "tags": [
                    "Teachers"
                ],
                "summary": "Teacher rate card",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/teachers/me/rate-card": {
            "put": {
                "tags": [
                    "Teachers"
                ],
                "summary": "Update own rate card",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/UpdateRateCardRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/teachers/me/availability": {
            "put": {
                "tags": [
                    "Teachers"
                ],
                "summary": "Replace own weekly availability",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ReplaceAvailabilityRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/bookings/quote": {
            "post": {
                "tags": [
                    "Bookings"
                ],
                "summary": "Price a selection",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/BookingSelectionRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Lesson time in the past",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/bookings/checkout": {
            "post": {
                "tags": [
                    "Bookings"
                ],
                "summary": "Start checkout",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/BookingSelectionRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Checkout redirect or existing booking",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "201": {
                        "description": "Free demo booked",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "502": {
                        "description": "Checkout provider unreachable",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/bookings/create": {
            "post": {
                "tags": [
                    "Bookings"
                ],
                "summary": "Create booking",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/CreateBookingRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Already exists",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/bookings/checkout/success": {
            "get": {
                "tags": [
                    "Bookings"
                ],
                "summary": "Reconcile checkout success redirect",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Already exists",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Missing or tampered redirect parameter",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/bookings/checkout/cancel": {
            "get": {
                "tags": [
                    "Bookings"
                ],
                "summary": "Reconcile checkout cancel redirect",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Canceled",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/bookings/{id}": {
            "get": {
                "tags": [
                    "Bookings"
                ],
                "summary": "Get booking",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/bookings/{id}/receipt": {
            "get": {
                "tags": [
                    "Bookings"
                ],
                "summary": "Download booking receipt",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "produces": [
                    "application/pdf"
                ],
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "PDF receipt",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": [
                "email",
                "password"
            ],
            "properties": {
                "email": {
                    "type": "string"
                },
                "password": {
                    "type": "string"
                }
            }
        },
        "DiscountTiers": {
            "type": "object",
            "properties": {
                "monthly4": {
                    "type": "string"
                },
                "monthly8": {
                    "type": "string"
                },
                "monthly12": {
                    "type": "string"
                }
            }
        },
        "UpdateRateCardRequest": {
            "type": "object",
            "properties": {
                "hourlyRate": {
                    "type": "string"
                },
                "discounts": {
                    "$ref": "#/definitions/DiscountTiers"
                },
                "trialClassAvailable": {
                    "type": "boolean"
                },
                "trialClassPrice": {
                    "type": "string"
                },
                "freeDemoAvailable": {
                    "type": "boolean"
                },
                "freeDemoDuration": {
                    "type": "integer"
                }
            }
        },
        "ReplaceAvailabilityRequest": {
            "type": "object",
            "required": [
                "availability"
            ],
            "properties": {
                "availability": {
                    "type": "object",
                    "additionalProperties": {
                        "type": "array",
                        "items": {
                            "type": "string"
                        }
                    }
                }
            }
        },
        "BookingSelectionRequest": {
            "type": "object",
            "required": [
                "teacherId",
                "lessonType"
            ],
            "properties": {
                "teacherId": {
                    "type": "string"
                },
                "lessonType": {
                    "type": "string",
                    "enum": [
                        "single",
                        "monthly",
                        "trial",
                        "free-demo"
                    ]
                },
                "selectedDate": {
                    "type": "string",
                    "format": "date"
                },
                "selectedTimeSlot": {
                    "type": "string"
                },
                "lessonDuration": {
                    "type": "integer"
                },
                "classesPerMonth": {
                    "type": "string",
                    "enum": [
                        "4",
                        "8",
                        "12"
                    ]
                },
                "subscriptionDuration": {
                    "type": "integer"
                },
                "selectedDays": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "preferredTimeSlot": {
                    "type": "string"
                },
                "lessonFocus": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                }
            }
        },
        "CreateBookingRequest": {
            "type": "object",
            "required": [
                "teacherId",
                "studentId",
                "lessonType",
                "lessonDate",
                "lessonDuration",
                "amount",
                "currency"
            ],
            "properties": {
                "teacherId": {
                    "type": "string"
                },
                "studentId": {
                    "type": "string"
                },
                "lessonType": {
                    "type": "string"
                },
                "lessonDate": {
                    "type": "string",
                    "format": "date-time"
                },
                "lessonDuration": {
                    "type": "integer"
                },
                "amount": {
                    "type": "string"
                },
                "currency": {
                    "type": "string"
                },
                "notes": {
                    "type": "string"
                },
                "lessonFocus": {
                    "type": "string"
                },
                "classesPerMonth": {
                    "type": "integer"
                },
                "subscriptionDuration": {
                    "type": "integer"
                },
                "paymentReference": {
                    "type": "string"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                },
                "field": {
                    "type": "string"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
